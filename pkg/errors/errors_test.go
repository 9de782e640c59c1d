package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeSigningFailed, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeParsing, true},
		{ErrorTypeNotFound, false},
		{ErrorTypeResourceExhausted, false},
		{ErrorTypeAuth, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestTypeOfWrapped(t *testing.T) {
	base := New(ErrorTypeNotFound, 400, "item not found")
	wrapped := fmt.Errorf("max retry attempts (3) exceeded: %w", base)

	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
	assert.True(t, IsTerminal(wrapped))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))
	assert.False(t, IsTerminal(New(ErrorTypeNetwork, 0, "reset")))
	assert.True(t, IsTerminal(New(ErrorTypeResourceExhausted, 404, "gone")))
	assert.False(t, IsTerminal(context.Canceled))
	assert.False(t, IsTerminal(errors.New("unknown")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Wrap(ErrorTypeNetwork, cause, "request failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network error")
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(503))
	assert.True(t, IsRetryableStatusCode(599))
	assert.False(t, IsRetryableStatusCode(400))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(410))
}

func TestAsError(t *testing.T) {
	base := New(ErrorTypeAuth, 401, "login required")
	got, ok := AsError(fmt.Errorf("profile: %w", base))
	assert.True(t, ok)
	assert.Same(t, base, got)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}
