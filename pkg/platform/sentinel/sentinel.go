package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: no record for the identifier
//   - ErrConflict: identifier already claimed by another record
//   - ErrInvalidState: entity in wrong state for the requested operation
//   - ErrUnavailable: downstream (broker, exporter) temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
