// Package domainerrors carries coded errors from services to transport adapters.
//
// Services return these so handlers can map them to status codes without
// inspecting error strings:
//
//	if dErrors.HasCode(err, dErrors.CodeSessionBusy) { ... }
//
// Infrastructure facts (record missing, identifier taken) come from
// pkg/platform/sentinel and are translated into a Code at the service boundary.
package domainerrors

import (
	"errors"
)

// Code classifies a domain error. The string value is the wire error code.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"

	// Submission-time rejections.
	CodeInvalidFileType    Code = "invalid_file_type"
	CodeFileTooLarge       Code = "file_too_large"
	CodeNoActiveSubmission Code = "no_active_submission"
	CodeSessionBusy        Code = "session_busy"

	// Pipeline-time failures.
	CodeTimeout Code = "processing_timeout"
)

// Error is a coded error with a client-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. A nil err still
// yields a coded error so callers can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message of the outermost coded error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
