package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter deterministically: sleeps advance the clock
// instead of blocking, and every sleep is recorded.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) install(l *Limiter) {
	l.now = func() time.Time { return c.now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		c.sleeps = append(c.sleeps, d)
		c.now = c.now.Add(d)
		return nil
	}
}

func TestAcquire_FirstCallDoesNotWait(t *testing.T) {
	l := New(60)
	clock := newFakeClock()
	clock.install(l)

	require.NoError(t, l.Acquire(context.Background()))
	assert.Empty(t, clock.sleeps)
}

func TestAcquire_ConsecutiveCallsSpacedByInterval(t *testing.T) {
	// 60 rpm means a 1s interval: three back-to-back acquires are observed
	// at t0, t0+1s, t0+2s.
	l := New(60)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	require.Len(t, clock.sleeps, 2)
	assert.Equal(t, time.Second, clock.sleeps[0])
	assert.Equal(t, time.Second, clock.sleeps[1])
}

func TestAcquire_NoWaitAfterIntervalElapsed(t *testing.T) {
	l := New(60)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))

	// Idle past the interval; the next acquire should go straight through.
	clock.now = clock.now.Add(1500 * time.Millisecond)
	require.NoError(t, l.Acquire(ctx))
	assert.Empty(t, clock.sleeps)
}

func TestAcquire_UpdatesLastDispatchEvenWithoutWaiting(t *testing.T) {
	l := New(60)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))

	clock.now = clock.now.Add(2 * time.Second)
	require.NoError(t, l.Acquire(ctx)) // no wait, but must reset the mark

	clock.now = clock.now.Add(300 * time.Millisecond)
	require.NoError(t, l.Acquire(ctx))
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 700*time.Millisecond, clock.sleeps[0])
}

func TestAcquire_BurstsSmoothedNotBatched(t *testing.T) {
	// A token bucket would admit a burst after a long idle period; this
	// limiter must still space every dispatch one interval apart.
	l := New(120) // 500ms interval
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	clock.now = clock.now.Add(time.Minute)

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	require.Len(t, clock.sleeps, 2)
	assert.Equal(t, 500*time.Millisecond, clock.sleeps[0])
	assert.Equal(t, 500*time.Millisecond, clock.sleeps[1])
}

func TestAcquire_ZeroBudgetDisablesLimiting(t *testing.T) {
	l := New(0)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	assert.Empty(t, clock.sleeps)
}

func TestAcquire_CancelledContext(t *testing.T) {
	l := New(60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

func TestAcquire_CancelledWhileWaiting(t *testing.T) {
	l := New(60)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Acquire(ctx))

	// Second acquire needs to wait a full second; cancel shortly after.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterval(t *testing.T) {
	assert.Equal(t, time.Second, New(60).Interval())
	assert.Equal(t, 3*time.Second, New(20).Interval())
	assert.Equal(t, time.Duration(0), New(0).Interval())
}

func TestAcquire_RealClockSpacing(t *testing.T) {
	// One undoctored run against the real clock, with coarse assertions to
	// stay robust under scheduler jitter.
	l := New(1200) // 50ms interval

	start := time.Now()
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
