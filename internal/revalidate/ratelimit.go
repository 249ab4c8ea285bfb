package revalidate

import (
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting for revalidation
// requests. Excess requests are rejected, not queued.
type RateLimiter struct {
	mu            sync.Mutex
	ratePerSecond float64
	tokens        float64
	lastRefill    time.Time
}

// NewRateLimiter creates a rate limiter. A rate of zero or less
// disables limiting entirely.
func NewRateLimiter(ratePerSecond float64) *RateLimiter {
	return &RateLimiter{
		ratePerSecond: ratePerSecond,
		tokens:        ratePerSecond, // Start with full bucket
		lastRefill:    time.Now(),
	}
}

// Allow returns true if a request may proceed.
func (r *RateLimiter) Allow() bool {
	if r.ratePerSecond <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()

	// Refill tokens based on elapsed time
	r.tokens += elapsed * r.ratePerSecond
	if r.tokens > r.ratePerSecond {
		r.tokens = r.ratePerSecond // Cap at max bucket size
	}
	r.lastRefill = now

	if r.tokens >= 1.0 {
		r.tokens -= 1.0
		return true
	}
	return false
}
