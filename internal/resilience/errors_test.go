package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped", fmt.Errorf("call: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"deadline", fmt.Errorf("wait modal: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
		{"reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"chrome net error", errors.New("page load error net::ERR_CONNECTION_CLOSED"), true},
		{"regular", errors.New("invalid input: missing field"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestMarkStatus(t *testing.T) {
	base := errors.New("HTTP failure")

	assert.True(t, IsTransient(MarkStatus(base, 503)))
	assert.True(t, IsTransient(MarkStatus(base, 429)))
	assert.False(t, IsTransient(MarkStatus(base, 409)))
	assert.Nil(t, MarkStatus(nil, 500))

	var te *TransientError
	assert.ErrorAs(t, MarkStatus(base, 502), &te)
	assert.Equal(t, 502, te.StatusCode)
	assert.ErrorIs(t, MarkStatus(base, 502), base)
}
