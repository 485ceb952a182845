// internal/utils/rate_limiter.go
package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps the golang.org/x/time/rate limiter
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter that admits one request per interval.
// A zero interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the rate limiter allows the next request
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// HostLimiter keeps one RateLimiter per host so that requests to the same
// external host are spaced by a fixed delay while different hosts proceed
// independently.
type HostLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewHostLimiter creates a per-host limiter with the given delay between requests
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		limiters: make(map[string]*RateLimiter),
	}
}

// Wait blocks until a request to host may proceed
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	return hl.get(host).Wait(ctx)
}

func (hl *HostLimiter) get(host string) *RateLimiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	rl, ok := hl.limiters[host]
	if !ok {
		rl = NewRateLimiter(hl.interval)
		hl.limiters[host] = rl
	}
	return rl
}
