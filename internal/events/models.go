package events

import (
	"time"

	"github.com/google/uuid"

	"certguard/internal/session"
	"certguard/internal/verification"
	dErrors "certguard/pkg/domain-errors"
)

// Kind identifies what happened to a session.
type Kind string

const (
	KindCompleted Kind = "verification.completed"
	KindFailed    Kind = "verification.failed"
)

// Event is the published record of a finished session. Superseded sessions
// never produce one.
type Event struct {
	ID            uuid.UUID           `json:"id"`
	Kind          Kind                `json:"kind"`
	SessionToken  uuid.UUID           `json:"session_token"`
	ClientScope   string              `json:"client_scope"`
	FileName      string              `json:"file_name"`
	Status        verification.Status `json:"status,omitempty"`
	Confidence    float64             `json:"confidence,omitempty"`
	StudentName   string              `json:"student_name,omitempty"`
	CertificateID string              `json:"certificate_id,omitempty"`
	Attestation   string              `json:"attestation,omitempty"`
	ErrorCode     dErrors.Code        `json:"error_code,omitempty"`
	Message       string              `json:"message,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// CompletedEvent builds the event for a committed outcome.
func CompletedEvent(s session.Session, out verification.Outcome) Event {
	return Event{
		ID:            uuid.New(),
		Kind:          KindCompleted,
		SessionToken:  s.Token,
		ClientScope:   s.Scope,
		FileName:      s.FileName,
		Status:        out.Status,
		Confidence:    out.Confidence,
		StudentName:   out.Extraction.StudentName,
		CertificateID: out.Extraction.CertificateID,
		Attestation:   out.Attestation,
		Message:       out.Message,
		Timestamp:     out.Timestamp,
	}
}

// FailedEvent builds the event for a session that ended in err.
func FailedEvent(s session.Session, err error, at time.Time) Event {
	msg := dErrors.MessageOf(err)
	if msg == "" {
		msg = "verification failed"
	}
	return Event{
		ID:           uuid.New(),
		Kind:         KindFailed,
		SessionToken: s.Token,
		ClientScope:  s.Scope,
		FileName:     s.FileName,
		ErrorCode:    dErrors.CodeOf(err),
		Message:      msg,
		Timestamp:    at,
	}
}
