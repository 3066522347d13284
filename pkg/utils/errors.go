package utils

import "fmt"

// Error codes carried in the response envelope. Clients branch on Code,
// so these strings are part of the API contract.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeSelection    = "SELECTION_ERROR"
	ErrCodeFormation    = "FORMATION_ERROR"
	ErrCodeUpstream     = "UPSTREAM_ERROR"
	ErrCodeRefreshBusy  = "REFRESH_IN_PROGRESS"
)

// AppError is the error half of the response envelope.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewAppError builds an AppError; the optional trailing string becomes
// Details.
func NewAppError(code, message string, details ...string) *AppError {
	e := &AppError{Code: code, Message: message}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func (e *AppError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}
