package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum delay between consecutive upstream
// requests. It is shared by every component that talks to the portal, so
// the whole run never exceeds one request per interval.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter with the given minimum inter-request
// delay. A non-positive delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	if delay <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the delay since the previous request has elapsed, or
// the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
