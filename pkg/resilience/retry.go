package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy defines retry behavior for transient collaborator failures.
// The reply generator is never retried through this; it is for the TTS
// provider's connect path only.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, initial time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: initial}
}

// Do runs fn with exponential backoff until it succeeds, the retry budget
// is exhausted, or ctx is cancelled. Rate-limit errors are not retried;
// the circuit breaker owns those.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.Backoff
	bo.MaxInterval = 2 * time.Second
	wrapped := func() error {
		err := fn()
		if err != nil && IsRateLimit(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.MaxRetries)), ctx))
}
