package http

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// rateLimiter allows limit messages per fixed one-minute window.
type rateLimiter struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	limit       int
	counter     int
	windowStart time.Time
}

func newRateLimiter(limit int, clock clockwork.Clock) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		clock:       clock,
		limit:       limit,
		windowStart: clock.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
