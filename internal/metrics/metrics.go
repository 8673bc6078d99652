// Package metrics tracks request counts, latency, token usage, and estimated
// spend for the completion client. The tracker only observes: none of its
// operations can fail, and it never influences request flow.
package metrics

import (
	"sync"
	"time"
)

// defaultWindowSize bounds the rolling latency window.
const defaultWindowSize = 100

// TokenUsage accumulates prompt/completion token counts.
type TokenUsage struct {
	Prompt     int64
	Completion int64
	Total      int64
}

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	RequestCount        int64
	ErrorCount          int64
	ErrorRate           float64
	AverageResponseTime time.Duration
	TokenUsage          TokenUsage
	CostEstimate        float64
	CacheHitRate        float64
	CacheLookups        int64
}

// Tracker accumulates metrics for the lifetime of a client instance.
// Counters reset only via an explicit Reset call.
type Tracker struct {
	mu sync.Mutex

	requestCount int64
	errorCount   int64

	latencies  []time.Duration
	windowSize int

	tokens       TokenUsage
	costEstimate float64
	prices       PriceTable

	cacheLookups int64
	cacheHitRate float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindowSize overrides the number of latency samples retained for the
// rolling average. Non-positive values keep the default.
func WithWindowSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.windowSize = n
		}
	}
}

// WithPrices overrides the model price table used for cost estimates.
func WithPrices(p PriceTable) Option {
	return func(t *Tracker) {
		t.prices = p
	}
}

// New creates a Tracker with the compiled-in price table and a window of
// 100 latency samples unless overridden.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		windowSize: defaultWindowSize,
		prices:     DefaultPrices(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RecordSuccess folds a completed request into the counters: the latency
// sample joins the rolling window (dropping the oldest beyond the window
// size), token usage accumulates, and the cost estimate grows by
// totalTokens/1000 times the model's per-thousand price.
func (t *Tracker) RecordSuccess(model string, promptTokens, completionTokens int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requestCount++

	t.latencies = append(t.latencies, elapsed)
	if len(t.latencies) > t.windowSize {
		t.latencies = t.latencies[len(t.latencies)-t.windowSize:]
	}

	total := int64(promptTokens) + int64(completionTokens)
	t.tokens.Prompt += int64(promptTokens)
	t.tokens.Completion += int64(completionTokens)
	t.tokens.Total += total

	t.costEstimate += float64(total) / 1000 * t.prices.PerThousand(model)
}

// RecordError counts a failed request. Error rate is cumulative since the
// last reset, not windowed.
func (t *Tracker) RecordError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestCount++
	t.errorCount++
}

// RecordCacheLookup updates the incremental cache hit rate:
// newRate = (oldRate*n + hit) / (n+1).
func (t *Tracker) RecordCacheLookup(hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := 0.0
	if hit {
		h = 1.0
	}
	n := float64(t.cacheLookups)
	t.cacheHitRate = (t.cacheHitRate*n + h) / (n + 1)
	t.cacheLookups++
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		RequestCount: t.requestCount,
		ErrorCount:   t.errorCount,
		TokenUsage:   t.tokens,
		CostEstimate: t.costEstimate,
		CacheHitRate: t.cacheHitRate,
		CacheLookups: t.cacheLookups,
	}
	if t.requestCount > 0 {
		snap.ErrorRate = float64(t.errorCount) / float64(t.requestCount)
	}
	if len(t.latencies) > 0 {
		var sum time.Duration
		for _, d := range t.latencies {
			sum += d
		}
		snap.AverageResponseTime = sum / time.Duration(len(t.latencies))
	}
	return snap
}

// Reset zeroes every counter. This is the explicit operator action; nothing
// resets implicitly.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requestCount = 0
	t.errorCount = 0
	t.latencies = nil
	t.tokens = TokenUsage{}
	t.costEstimate = 0
	t.cacheLookups = 0
	t.cacheHitRate = 0
}
