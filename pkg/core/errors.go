package core

import (
	"errors"
	"fmt"
)

// Error is the typed error returned across package boundaries.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Param      string    `json:"param,omitempty"`
	SessionRef string    `json:"session_ref,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrSessionNotFound    ErrorType = "session_not_found"
	ErrValidation         ErrorType = "validation_error"
	ErrEmptyModelResponse ErrorType = "empty_model_response"
	ErrPersistence        ErrorType = "persistence_error"
	ErrTransport          ErrorType = "transport_error"
	ErrProvider           ErrorType = "provider_error"
)

// NewSessionNotFoundError reports a missing audit session.
func NewSessionNotFoundError(sessionRef string) *Error {
	return &Error{
		Type:       ErrSessionNotFound,
		Message:    "audit session not found",
		SessionRef: sessionRef,
	}
}

// NewValidationError reports malformed input at a schema boundary.
func NewValidationError(message, param string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
		Param:   param,
	}
}

// NewEmptyModelResponseError reports a model turn with neither text nor a
// tool call.
func NewEmptyModelResponseError() *Error {
	return &Error{
		Type:    ErrEmptyModelResponse,
		Message: "model returned neither text nor a tool call",
	}
}

// NewPersistenceError wraps a storage failure.
func NewPersistenceError(message string, cause error) *Error {
	return &Error{
		Type:    ErrPersistence,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError wraps a streaming or network failure.
func NewTransportError(message string, cause error) *Error {
	return &Error{
		Type:    ErrTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewProviderError wraps a model provider failure.
func NewProviderError(provider string, cause error) *Error {
	return &Error{
		Type:    ErrProvider,
		Message: provider,
		Cause:   cause,
	}
}

// IsRetryable reports whether a caller may reasonably retry the operation.
// Nothing in this module retries on its own.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrPersistence, ErrTransport:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
