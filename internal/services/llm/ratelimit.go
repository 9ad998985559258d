package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// newRPMLimiter returns a token-bucket limiter enforcing rpm requests per
// minute, burst 1, matching spec.md §5's "pre-call sleep, not a queue"
// contract. rpm <= 0 means no ceiling is enforced.
func newRPMLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}

// waitRPMLimiter blocks until the limiter admits the next call, or until ctx
// is cancelled. A nil limiter is a no-op.
func waitRPMLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
