package browser

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Jitter is a randomized wait window.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Between builds a Jitter from millisecond bounds.
func Between(minMs, maxMs int) Jitter {
	return Jitter{Min: time.Duration(minMs) * time.Millisecond, Max: time.Duration(maxMs) * time.Millisecond}
}

// Duration draws a duration in [Min, Max].
func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return max(j.Min, 0)
	}
	return j.Min + rand.N(j.Max-j.Min+1)
}

// Wait sleeps for a random duration in the window or until ctx is done.
func (j Jitter) Wait(ctx context.Context) error {
	return Pause(ctx, j.Duration())
}

// Pause sleeps for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	return resilience.Sleep(ctx, d)
}
