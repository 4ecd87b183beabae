package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Business errors. All of these are expected outcomes of the
	// allocator, not faults: conflicts and late accepts are normal
	// under concurrent dispatch.
	ErrNoResourceAvailable = errors.New("no owned resource available")
	ErrAssignmentConflict  = errors.New("resource no longer available")
	ErrAlreadyResolved     = errors.New("booking already resolved")
	ErrRequestExpired      = errors.New("confirmation request expired")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrAlreadyDispatched   = errors.New("booking already dispatched to contractors")
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common API errors
func NotFound(resource string) *APIError {
	return NewAPIError("not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return NewAPIError("bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return NewAPIError("conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return NewAPIError("internal_error", message, http.StatusInternalServerError)
}

func NoResourceAvailable() *APIError {
	return NewAPIError("no_resource_available", "no vehicle and driver available; booking escalated for manual assignment", http.StatusAccepted)
}

func AssignmentConflict() *APIError {
	return NewAPIError("assignment_conflict", "resource no longer available, please retry", http.StatusConflict)
}

func AlreadyResolved() *APIError {
	return NewAPIError("already_resolved", "this booking has already been taken", http.StatusConflict)
}

func RequestExpired() *APIError {
	return NewAPIError("request_expired", "this confirmation request has expired", http.StatusGone)
}

func InvalidTransition(from, to string) *APIError {
	return NewAPIError("invalid_transition", fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusBadRequest)
}

func AlreadyDispatched() *APIError {
	return NewAPIError("already_dispatched", "contractor dispatch already in progress for this booking", http.StatusConflict)
}
