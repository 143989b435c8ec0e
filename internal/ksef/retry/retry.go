// Package retry bounds submission attempts with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxAttempts is the fixed attempt budget per submission.
const MaxAttempts = 3

const (
	initialDelay = 2 * time.Second
	maxDelay     = 8 * time.Second
)

// Result is the terminal outcome of an attempt sequence. Exhaustion is a
// reported business outcome, not a fault: Err carries the last failure and
// nothing escapes as a panic.
type Result struct {
	RemoteID string
	Err      error
	Attempts int
	Success  bool
}

// Retrier drives a submit function through up to MaxAttempts tries,
// sleeping 2s/4s/8s after failed attempts (the delay also follows the
// final failure, preserving the pacing of the batch it replaced).
type Retrier struct {
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option adjusts a Retrier; used by tests to stub the sleep.
type Option func(*Retrier)

// WithSleep replaces the delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = sleep }
}

// New builds a Retrier with the fixed attempt budget.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts: MaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds or the attempt budget is spent.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) Result {
	delays := newDelaySchedule()

	var result Result
	for result.Attempts < r.maxAttempts {
		result.Attempts++

		remoteID, err := fn(ctx)
		if err == nil {
			result.RemoteID = remoteID
			result.Success = true
			result.Err = nil
			return result
		}
		result.Err = err

		if sleepErr := r.sleep(ctx, delays.NextBackOff()); sleepErr != nil {
			// Context canceled mid-backoff; report what happened so far.
			return result
		}
	}
	return result
}

// newDelaySchedule yields the deterministic 2s, 4s, 8s (capped) sequence.
func newDelaySchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.Multiplier = 2
	b.MaxInterval = maxDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
