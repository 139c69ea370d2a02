// Package apperrors defines the error kinds the HTTP layer knows how to map
// to status codes. Services return these; controllers just propagate.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing session or lesson.
	ErrNotFound = errors.New("not found")

	// ErrNotReady marks a result pulled before the pipeline finished.
	ErrNotReady = errors.New("result not ready")

	// ErrCancelled marks an operation on a cancelled session.
	ErrCancelled = errors.New("session cancelled")
)

// ValidationError is a rejected request payload. Maps to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthError is a missing or rejected credential. Maps to 401.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// ServiceError wraps a failed upstream call. Maps to 502.
type ServiceError struct {
	Upstream string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewServiceError(upstream string, err error) *ServiceError {
	return &ServiceError{Upstream: upstream, Err: err}
}

// ProtocolError is a violation of a channel's wire contract, such as a
// stage-regressing progress event.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}
