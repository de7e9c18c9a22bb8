// Package apperr defines the typed failure taxonomy shared by the Store,
// the domain state machines, and the HTTP layer (spec.md §7, §4.10).
package apperr

import "fmt"

// Code is one of the representative error codes from spec.md §6.
type Code string

const (
	CodeInvalidInput         Code = "invalid_input"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeEmailAlreadyExists   Code = "email_already_exists"
	CodeInvalidToken         Code = "invalid_token"
	CodeForbidden            Code = "forbidden"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeDuplicateReport      Code = "duplicate_reason_report"
	CodeRevisionHistoryNone  Code = "reason_revision_history_not_found"
	CodeBriefLinkExpired     Code = "brief_link_expired"
	CodeCompareUpstreamTO    Code = "compare_upstream_timeout"
	CodeTemporarilyUnavail   Code = "temporarily_unavailable"
	CodeUpstreamUnavailable  Code = "upstream_unavailable"
	CodeBackpressure         Code = "backpressure"
	CodeUnknown              Code = "unknown_error"
)

// Error is the typed failure every layer below HTTP surfaces. The HTTP
// normalizer (internal/httpapi) maps it onto the JSON error envelope.
type Error struct {
	Code      Code
	Message   string
	Details   map[string]interface{}
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Retry() *Error {
	e.Retryable = true
	return e
}

func (e *Error) WithDetails(d map[string]interface{}) *Error {
	e.Details = d
	return e
}

func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

func DuplicateReport() *Error {
	return New(CodeDuplicateReport, "an open reason report already exists for this (user, event, reason)")
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func Backpressure() *Error {
	return New(CodeBackpressure, "work queue is full, retry").Retry()
}

func TemporarilyUnavailable(message string) *Error {
	return New(CodeTemporarilyUnavail, message).Retry()
}

// As extracts an *Error from err, returning (nil, false) for plain errors.
func As(err error) (*Error, bool) {
	ae, ok := err.(*Error)
	return ae, ok
}
