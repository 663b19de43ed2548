package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RateLimitError marks a provider 429 response. Rate limits are the
// only failure class the circuit breaker counts; transient network
// errors are left to the retry policy.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rate limited", e.Provider)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// CircuitBreaker opens after consecutive rate limit failures and stays
// open for a cooldown window. A single success closes it again.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	strikes  int
	reopenAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, clock: time.Now}
}

// Allow reports whether a request may proceed.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.clock().Before(c.reopenAt)
}

// OnSuccess closes the breaker and clears accumulated strikes.
func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strikes = 0
	c.reopenAt = time.Time{}
}

// OnError records err against the breaker. Non-rate-limit errors are
// ignored.
func (c *CircuitBreaker) OnError(err error) {
	if !IsRateLimit(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strikes++
	if c.strikes >= c.threshold {
		c.reopenAt = c.clock().Add(c.cooldown)
	}
}
