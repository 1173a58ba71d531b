package session

import (
	"errors"
	"fmt"

	dErrors "certguard/pkg/domain-errors"
)

var (
	// ErrSuperseded signals that a newer session or a reset replaced the
	// session. It never reaches callers; the stale output is dropped.
	ErrSuperseded = errors.New("session superseded")
	// ErrClosed is returned once the manager has shut down.
	ErrClosed = errors.New("session manager closed")
)

func errNoActiveSubmission() error {
	return dErrors.New(dErrors.CodeNoActiveSubmission, "no file submitted")
}

func errInvalidFileType(mimeType string) error {
	return dErrors.New(dErrors.CodeInvalidFileType, fmt.Sprintf("file type %q is not accepted", mimeType))
}

func errFileTooLarge(size, limit int64) error {
	return dErrors.New(dErrors.CodeFileTooLarge, fmt.Sprintf("file is %d bytes, limit is %d", size, limit))
}

func errSessionBusy() error {
	return dErrors.New(dErrors.CodeSessionBusy, "a verification is already in progress")
}

func errProcessingTimeout(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "verification exceeded its processing time")
}
