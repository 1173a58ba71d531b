package handler

import (
	"time"

	"certguard/internal/session"
	"certguard/internal/verification"
)

type acceptedResponse struct {
	SessionToken string        `json:"session_token"`
	State        session.State `json:"state"`
	StatusURL    string        `json:"status_url"`
	CreatedAt    time.Time     `json:"created_at"`
}

func toAcceptedResponse(s session.Session) acceptedResponse {
	return acceptedResponse{
		SessionToken: s.Token.String(),
		State:        s.State,
		StatusURL:    "/v1/verifications/" + s.Token.String(),
		CreatedAt:    s.CreatedAt,
	}
}

type viewResponse struct {
	SessionToken string                `json:"session_token"`
	State        session.State         `json:"state"`
	FileName     string                `json:"file_name"`
	FileSize     int64                 `json:"file_size"`
	FileMIME     string                `json:"file_mime"`
	CreatedAt    time.Time             `json:"created_at"`
	Percent      int                   `json:"percent"`
	Label        string                `json:"label,omitempty"`
	Progress     []session.Progress    `json:"progress"`
	Outcome      *verification.Outcome `json:"outcome,omitempty"`
	Failure      *session.Failure      `json:"failure,omitempty"`
}

func toViewResponse(v session.View) viewResponse {
	resp := viewResponse{
		SessionToken: v.Session.Token.String(),
		State:        v.Session.State,
		FileName:     v.Session.FileName,
		FileSize:     v.Session.FileSize,
		FileMIME:     v.Session.FileMIME,
		CreatedAt:    v.Session.CreatedAt,
		Progress:     v.Progress,
		Outcome:      v.Outcome,
		Failure:      v.Failure,
	}
	if n := len(v.Progress); n > 0 {
		resp.Percent = v.Progress[n-1].Percent
		resp.Label = v.Progress[n-1].Label
	}
	return resp
}
