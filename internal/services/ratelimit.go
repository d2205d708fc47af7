package services

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound calls to one external service. Burst is pinned
// to 1 so calls are spaced by the full interval; the engine issues calls
// serially, so FIFO ordering into the limiter is trivial.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns a Limiter allowing rps requests per second.
// Non-positive rps falls back to 1 request per second.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
