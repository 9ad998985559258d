// Package substrate provides the shared HTTP/browser scraping layer used by
// the Filings client, company directory, IR template engine, and IR explorer:
// rate limiting, retries, robots.txt discipline, and a pooled headless
// browser session with request route-blocking.
package substrate

import (
	"sync"
	"time"
)

// RateLimiter enforces a single per-instance minimum interval between
// outbound requests, independent of target origin. Unlike a per-domain
// limiter, one RateLimiter instance is meant to be shared by one client
// (HTTP or browser) across all of its requests.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a limiter enforcing the given minimum interval
// between Wait calls returning.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the minimum interval has elapsed since the last request
// was initiated, then records the new request's start time.
func (r *RateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interval <= 0 {
		r.last = time.Now()
		return
	}

	elapsed := time.Since(r.last)
	if elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.last = time.Now()
}

// SetInterval updates the minimum interval for subsequent Wait calls.
func (r *RateLimiter) SetInterval(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = interval
}
