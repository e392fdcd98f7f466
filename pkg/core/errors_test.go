package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with param",
			err:  NewValidationError("item_id is required", "item_id"),
			want: "validation_error: item_id is required (param: item_id)",
		},
		{
			name: "with cause",
			err:  NewPersistenceError("insert item audit", errors.New("connection refused")),
			want: "persistence_error: insert item audit: connection refused",
		},
		{
			name: "plain",
			err:  NewEmptyModelResponseError(),
			want: "empty_model_response: model returned neither text nor a tool call",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() mismatch: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_IsRetryable(t *testing.T) {
	if NewValidationError("bad", "x").IsRetryable() {
		t.Error("validation errors should not be retryable")
	}
	if NewSessionNotFoundError("abc").IsRetryable() {
		t.Error("session_not_found should not be retryable")
	}
	if !NewPersistenceError("insert", errors.New("timeout")).IsRetryable() {
		t.Error("persistence errors should be retryable")
	}
	if !NewTransportError("dial", errors.New("refused")).IsRetryable() {
		t.Error("transport errors should be retryable")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewTransportError("read frame", cause)

	wrapped := fmt.Errorf("session loop: %w", err)
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the cause through the chain")
	}

	var ce *Error
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As should find the *Error")
	}
	if ce.Type != ErrTransport {
		t.Errorf("Type mismatch: got %q", ce.Type)
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("turn failed: %w", NewSessionNotFoundError("9f2"))
	if !IsType(err, ErrSessionNotFound) {
		t.Error("IsType should match through wrapping")
	}
	if IsType(err, ErrValidation) {
		t.Error("IsType should not match a different type")
	}
	if IsType(errors.New("plain"), ErrValidation) {
		t.Error("IsType should be false for non-core errors")
	}
}
