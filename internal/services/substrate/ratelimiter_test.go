package substrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_EnforcesMinimumInterval(t *testing.T) {
	limiter := NewRateLimiter(50 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	limiter.Wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRateLimiter_ZeroIntervalDoesNotBlock(t *testing.T) {
	limiter := NewRateLimiter(0)

	start := time.Now()
	limiter.Wait()
	limiter.Wait()
	limiter.Wait()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 20*time.Millisecond)
}

func TestRateLimiter_SetIntervalAppliesToSubsequentWaits(t *testing.T) {
	limiter := NewRateLimiter(0)
	limiter.Wait()
	limiter.SetInterval(30 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
