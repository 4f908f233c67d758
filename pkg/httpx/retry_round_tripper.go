package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
)

// Status codes the retry transport reacts to unless the caller overrides them.
// Overpass instances answer 429 when the slot quota is exhausted and 504 when
// the query timed out on the server side.
var defaultRetryStatuses = []int{ //nolint:gochecknoglobals
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryRoundTripper re-executes requests that failed with a transport error or
// one of the configured status codes, doubling the delay between attempts up
// to maxDelay. A Retry-After header on the response extends the next delay.
type RetryRoundTripper struct {
	next        http.RoundTripper
	clock       clockwork.Clock
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryOn     map[int]struct{}
}

type RetryOption func(*RetryRoundTripper)

func WithRetryStatuses(statuses ...int) RetryOption {
	return func(rt *RetryRoundTripper) {
		rt.retryOn = make(map[int]struct{}, len(statuses))
		for _, status := range statuses {
			rt.retryOn[status] = struct{}{}
		}
	}
}

func WithRetryClock(clock clockwork.Clock) RetryOption {
	return func(rt *RetryRoundTripper) {
		rt.clock = clock
	}
}

func NewRetryRoundTripper(
	next http.RoundTripper,
	maxAttempts int,
	baseDelay time.Duration,
	maxDelay time.Duration,
	opts ...RetryOption,
) RetryRoundTripper {
	rt := RetryRoundTripper{
		next:        next,
		clock:       clockwork.NewRealClock(),
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		retryOn:     nil,
	}

	WithRetryStatuses(defaultRetryStatuses...)(&rt)

	for _, opt := range opts {
		opt(&rt)
	}

	return rt
}

// RoundTrip implements http.RoundTripper interface.
func (rt RetryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// A consumed body cannot be replayed, so such requests go out exactly once.
	if req.Body != nil && req.GetBody == nil {
		return rt.next.RoundTrip(req) //nolint:wrapcheck
	}

	ctx := req.Context()
	delay := rt.baseDelay

	var lastErr error

	for attempt := 1; attempt <= rt.maxAttempts; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("req.GetBody: %w", err)
			}

			req.Body = body
		}

		resp, err := rt.next.RoundTrip(req)
		if err == nil && !rt.shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = fmt.Errorf("next.RoundTrip: %w", err)
		} else {
			lastErr = fmt.Errorf("unexpected status: %s", resp.Status)

			if attempt == rt.maxAttempts {
				return resp, nil
			}

			if wait := retryAfter(resp); wait > delay {
				delay = wait
			}

			resp.Body.Close()
		}

		if attempt == rt.maxAttempts {
			break
		}

		logger(ctx).Warn(
			"retrying request",
			slog.String("url", req.URL.String()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)

		if err = sleepWithClock(ctx, rt.clock, delay); err != nil {
			return nil, err
		}

		delay = nextDelay(delay, rt.maxDelay)
	}

	return nil, lastErr
}

func (rt RetryRoundTripper) shouldRetry(statusCode int) bool {
	_, ok := rt.retryOn[statusCode]

	return ok
}

func retryAfter(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

func nextDelay(current, maxDelay time.Duration) time.Duration {
	next := current * 2
	if next > maxDelay {
		return maxDelay
	}

	return next
}

func sleepWithClock(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-timer.Chan():
		return nil
	}
}
