package session

import (
	"time"

	"github.com/google/uuid"
)

// State is a verification session's lifecycle position. Sessions only move
// forward; Completed, Superseded and Failed are terminal.
type State string

const (
	StateCreated    State = "created"
	StateStaging    State = "staging"
	StateExtracting State = "extracting"
	StateResolving  State = "resolving"
	StateCompleted  State = "completed"
	StateSuperseded State = "superseded"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateSuperseded, StateFailed:
		return true
	default:
		return false
	}
}

// File is one submitted document.
type File struct {
	Name     string
	Size     int64
	MIMEType string
	Bytes    []byte
}

// Progress is one staged progress notification.
type Progress struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}

// Stages is the fixed progress sequence every session walks through.
var Stages = []Progress{
	{Percent: 15, Label: "reading"},
	{Percent: 35, Label: "extracting"},
	{Percent: 55, Label: "parsing"},
	{Percent: 75, Label: "verifying"},
	{Percent: 95, Label: "finalizing"},
	{Percent: 100, Label: "complete"},
}

// Session is a point-in-time copy of a verification session.
type Session struct {
	Token     uuid.UUID `json:"session_token"`
	Scope     string    `json:"client_scope"`
	State     State     `json:"state"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	FileMIME  string    `json:"file_mime"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy decides what a submission does while another session is in flight.
type Policy string

const (
	// PolicyReject refuses the submission with SessionBusy.
	PolicyReject Policy = "reject"
	// PolicySupersede cancels the in-flight session and starts the new one.
	PolicySupersede Policy = "supersede"
)

// Config bounds submissions and the staged pipeline.
type Config struct {
	AllowedMIMETypes  []string
	MaxFileBytes      int64
	StageDelayMin     time.Duration
	StageDelayMax     time.Duration
	ProcessingTimeout time.Duration
	Policy            Policy
}

func DefaultConfig() Config {
	return Config{
		AllowedMIMETypes:  []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"},
		MaxFileBytes:      10 << 20,
		StageDelayMin:     500 * time.Millisecond,
		StageDelayMax:     800 * time.Millisecond,
		ProcessingTimeout: 30 * time.Second,
		Policy:            PolicyReject,
	}
}
