package verification

import (
	"time"

	"certguard/internal/credential/models"
	"certguard/internal/extraction"
)

// Status is the trust decision for a submitted document.
type Status string

const (
	StatusVerified Status = "VERIFIED"
	StatusForged   Status = "FORGED"
	StatusNotFound Status = "NOT_FOUND"
)

func (s Status) String() string { return string(s) }

// Outcome is the immutable result of verifying one extraction.
type Outcome struct {
	Status        Status                   `json:"status"`
	Confidence    float64                  `json:"confidence"`
	MatchedRecord *models.CredentialRecord `json:"matched_record,omitempty"`
	Extraction    extraction.Result        `json:"extraction"`
	Message       string                   `json:"message"`
	Timestamp     time.Time                `json:"timestamp"`
	// ExpectedName and FoundName are set on FORGED outcomes.
	ExpectedName string `json:"expected_name,omitempty"`
	FoundName    string `json:"found_name,omitempty"`
	// Attestation is set on VERIFIED outcomes.
	Attestation string `json:"attestation,omitempty"`
}
