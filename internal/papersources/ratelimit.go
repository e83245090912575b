package papersources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between requests to one external API.
// It is safe for concurrent use because the underlying rate.Limiter is.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewIntervalRateLimiter creates a limiter allowing one request per interval.
// A non-positive interval disables throttling.
//
// Typical intervals:
//   - arXiv: 3s
//   - CORE: 2s
//   - PubMed: 340ms without an API key, 100ms with one
func NewIntervalRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting, consuming a token.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Interval returns the current minimum interval, or 0 when unthrottled.
func (r *RateLimiter) Interval() time.Duration {
	limit := r.limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
