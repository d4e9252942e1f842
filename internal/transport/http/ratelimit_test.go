package http

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRateLimiterWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := newRateLimiter(2, clock)

	if !rl.allow() || !rl.allow() {
		t.Fatal("expected first two messages to pass")
	}
	if rl.allow() {
		t.Fatal("expected third message to be limited")
	}

	clock.Advance(time.Minute)
	if !rl.allow() {
		t.Fatal("expected counter to reset after a minute")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0, clockwork.NewFakeClock())
	for i := 0; i < 1000; i++ {
		if !rl.allow() {
			t.Fatal("disabled limiter must allow everything")
		}
	}

	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatal("nil limiter must allow everything")
	}
}
