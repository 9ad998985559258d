package substrate

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// RetryPolicy is three attempts with jittered exponential backoff, adapted
// almost unchanged from the crawler package's retry policy. Client errors
// (4xx, except 408 and 429) are never retried; the retryable status-code set
// and an apperrors.Error's Retryable field drive the decision.
type RetryPolicy struct {
	MaxAttempts           int
	InitialBackoff        time.Duration
	MaxBackoff            time.Duration
	BackoffMultiplier     float64
	RetryableStatusCodes  map[int]bool
}

// NewRetryPolicy returns the default policy: 3 attempts, 1s initial backoff,
// 30s max backoff, 2.0x multiplier, retryable on {408,429,500,502,503,504}.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: map[int]bool{
			408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
		},
	}
}

// ShouldRetry reports whether a failed attempt (HTTP status and/or error)
// warrants another try.
func (p *RetryPolicy) ShouldRetry(statusCode int, err error) bool {
	if statusCode != 0 && p.RetryableStatusCodes[statusCode] {
		return true
	}
	if err == nil {
		return false
	}
	if appErr, ok := err.(*apperrors.Error); ok {
		return appErr.Retryable
	}
	return isRetryableError(err)
}

// CalculateBackoff returns the jittered backoff delay (±25%) for the given
// zero-based attempt index.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff) * pow(p.BackoffMultiplier, attempt)
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	jitter := backoff * 0.25 * (2*rand.Float64() - 1)
	result := time.Duration(backoff + jitter)
	if result < 0 {
		result = 0
	}
	return result
}

// ExecuteWithRetry runs fn, retrying per policy. fn returns the observed
// HTTP status code (0 if not applicable) and an error. The last error or
// status is returned if all attempts are exhausted.
func ExecuteWithRetry(ctx context.Context, logger arbor.ILogger, policy *RetryPolicy, fn func() (int, error)) (int, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastStatus, err
		}

		status, err := fn()
		if err == nil && !policy.RetryableStatusCodes[status] {
			return status, nil
		}

		lastStatus, lastErr = status, err
		if !policy.ShouldRetry(status, err) {
			return status, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		backoff := policy.CalculateBackoff(attempt)
		logger.Warn().
			Int("attempt", attempt+1).
			Int("status_code", status).
			Err(err).
			Dur("backoff", backoff).
			Msg("retrying after transient failure")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return lastStatus, ctx.Err()
		}
	}

	return lastStatus, lastErr
}

func isRetryableError(err error) bool {
	if netErr, ok := err.(net.Error); ok {
		if netErr.Timeout() {
			return true
		}
	}
	var opErr *net.OpError
	if ok := asOpError(err, &opErr); ok {
		return true
	}
	return false
}

func asOpError(err error, target **net.OpError) bool {
	for err != nil {
		if opErr, ok := err.(*net.OpError); ok {
			*target = opErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
