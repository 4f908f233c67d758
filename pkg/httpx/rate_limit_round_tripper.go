package httpx

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimitRoundTripper spaces outgoing requests at least minInterval apart.
// Nominatim's usage policy allows at most one request per second, so every
// caller of the shared client has to go through the same limiter.
type RateLimitRoundTripper struct {
	next        http.RoundTripper
	clock       clockwork.Clock
	minInterval time.Duration

	mu       sync.Mutex
	nextSlot time.Time
}

type RateLimitOption func(*RateLimitRoundTripper)

func WithRateLimitClock(clock clockwork.Clock) RateLimitOption {
	return func(rt *RateLimitRoundTripper) {
		rt.clock = clock
	}
}

func NewRateLimitRoundTripper(
	next http.RoundTripper,
	minInterval time.Duration,
	opts ...RateLimitOption,
) *RateLimitRoundTripper {
	rt := &RateLimitRoundTripper{
		next:        next,
		clock:       clockwork.NewRealClock(),
		minInterval: minInterval,
	}

	for _, opt := range opts {
		opt(rt)
	}

	return rt
}

// RoundTrip implements http.RoundTripper interface.
func (rt *RateLimitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.wait(req); err != nil {
		return nil, err
	}

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	return resp, nil
}

// wait reserves the next send slot under the lock and sleeps until it comes up.
// Concurrent requests queue up one interval apart instead of bursting.
func (rt *RateLimitRoundTripper) wait(req *http.Request) error {
	rt.mu.Lock()

	now := rt.clock.Now()

	slot := rt.nextSlot
	if slot.Before(now) {
		slot = now
	}

	rt.nextSlot = slot.Add(rt.minInterval)

	rt.mu.Unlock()

	return sleepWithClock(req.Context(), rt.clock, slot.Sub(now))
}
