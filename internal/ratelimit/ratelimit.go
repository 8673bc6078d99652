// Package ratelimit spaces outbound provider calls to stay inside a
// requests-per-minute budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between dispatches derived from a
// requests-per-minute budget. It tracks only the single most recent dispatch
// time rather than a token bucket, so bursts are smoothed to one request per
// interval instead of being admitted in batches.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter for the given requests-per-minute budget.
// A non-positive budget disables limiting.
func New(maxPerMinute int) *Limiter {
	var interval time.Duration
	if maxPerMinute > 0 {
		interval = time.Minute / time.Duration(maxPerMinute)
	}
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until at least one interval has elapsed since the previous
// dispatch, then records the current time as the new last-dispatch mark. The
// mark is updated on every call, including ones that did not need to wait.
// The only failure mode is ctx being cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	wait := l.interval - now.Sub(l.last)
	if wait <= 0 {
		l.last = now
		l.mu.Unlock()
		return ctx.Err()
	}
	// Claim the slot before sleeping so concurrent acquirers queue up behind
	// this dispatch instead of all waking at the same instant.
	l.last = now.Add(wait)
	l.mu.Unlock()

	return l.sleep(ctx, wait)
}

// Interval returns the configured minimum spacing between dispatches.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
