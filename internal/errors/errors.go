package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Stalker error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrUpstream       ErrorCode = "UPSTREAM"        // 502
)

// StalkerError represents a structured error with code, status, and details.
type StalkerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *StalkerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StalkerError {
	return &StalkerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidKey creates a 400 error for a path key outside its allowed set.
func NewInvalidKey(kind, key string, allowed []string) *StalkerError {
	return &StalkerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("invalid %s key %q", kind, key),
		Details: map[string]any{"key": key, "allowed": allowed},
	}
}

// NewUnauthorized creates a 401 error for a missing or wrong credential.
func NewUnauthorized(msg string) *StalkerError {
	return &StalkerError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a resource cannot be found.
func NewNotFound(identifier string) *StalkerError {
	return &StalkerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUpstream creates a 502 error for a failed call to an external service.
func NewUpstream(service string, err error) *StalkerError {
	msg := fmt.Sprintf("%s request failed", service)
	if err != nil {
		msg = fmt.Sprintf("%s request failed: %v", service, err)
	}
	return &StalkerError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
	}
}

// NewUpstreamStatus creates a 502 error for a non-success HTTP response.
func NewUpstreamStatus(service string, status int) *StalkerError {
	return &StalkerError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("status %d from %s", status, service),
		Details: map[string]any{"service": service, "upstream_status": status},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StalkerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StalkerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a StalkerError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StalkerError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the StalkerError in err's chain, if any.
func As(err error) (*StalkerError, bool) {
	var sErr *StalkerError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}
