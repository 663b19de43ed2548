package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerIgnoresNonRateLimitErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(errors.New("connection reset"))
	if !cb.Allow() {
		t.Fatal("breaker must stay closed for non-rate-limit errors")
	}
}

func TestBreakerOpensAndCoolsDown(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.clock = func() time.Time { return now }

	cb.OnError(RateLimitError{Provider: "wavestream"})
	if !cb.Allow() {
		t.Fatal("one strike must not open the breaker")
	}
	cb.OnError(RateLimitError{Provider: "wavestream"})
	if cb.Allow() {
		t.Fatal("breaker must open at the threshold")
	}

	now = now.Add(61 * time.Second)
	if !cb.Allow() {
		t.Fatal("breaker must close after the cooldown")
	}
}

func TestBreakerSuccessResetsStrikes(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	cb.OnError(RateLimitError{Provider: "wavestream"})
	cb.OnSuccess()
	cb.OnError(RateLimitError{Provider: "wavestream"})
	if !cb.Allow() {
		t.Fatal("strikes must reset after a success")
	}
}

func TestWrappedRateLimitDetected(t *testing.T) {
	err := errors.Join(errors.New("synthesis failed"), RateLimitError{Provider: "wavestream", Message: "429"})
	if !IsRateLimit(err) {
		t.Fatal("wrapped rate limit must be detected")
	}
}
