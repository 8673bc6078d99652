package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/cache"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/metrics"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/parse"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/prompt"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/ratelimit"
)

// defaultCacheTTL is applied when the client is built without an explicit TTL.
const defaultCacheTTL = 5 * time.Minute

// Options carries per-call settings. The zero value means "use the client
// and transport defaults".
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration

	// CacheKey is the caller-supplied fingerprint identifying semantically
	// equivalent requests. Empty disables caching for the call.
	CacheKey string

	// RequireJSON makes CompleteFromTemplate fail with a parse_error when
	// the recovery chain degrades to raw text. Without it, raw text is a
	// valid degraded result and the caller decides.
	RequireJSON bool
}

// Client orchestrates a completion call: cache check, rate limit, transport
// dispatch, metrics accounting, parse recovery, cache store. All
// dependencies are injected explicitly; there is no package-level default
// client.
type Client struct {
	transport Transport
	cache     *cache.Store
	limiter   *ratelimit.Limiter
	tracker   *metrics.Tracker
	cacheTTL  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCache substitutes the response cache.
func WithCache(s *cache.Store) ClientOption {
	return func(c *Client) { c.cache = s }
}

// WithLimiter substitutes the rate limiter.
func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithTracker substitutes the metrics tracker.
func WithTracker(t *metrics.Tracker) ClientOption {
	return func(c *Client) { c.tracker = t }
}

// WithCacheTTL sets how long cached responses stay servable.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient builds a Client around the given transport. Unconfigured
// dependencies default to an empty cache, an unthrottled limiter, and a
// fresh tracker.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		cacheTTL:  defaultCacheTTL,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = cache.New()
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(0)
	}
	if c.tracker == nil {
		c.tracker = metrics.New()
	}
	return c
}

// Complete runs one completion exchange.
//
// When opts.CacheKey is set, a fresh cached response short-circuits the call
// without touching the transport or the rate limiter. On a miss the call
// waits for a rate slot, dispatches exactly once, records metrics either
// way, stores a successful response under the key, and returns it. Transport
// failures come back classified as *ExternalError; there is no internal
// retry.
func (c *Client) Complete(ctx context.Context, msgs []Message, opts Options) (*Response, error) {
	reqID := uuid.NewString()

	if opts.CacheKey != "" {
		if v, ok := c.cache.Get(opts.CacheKey); ok {
			c.tracker.RecordCacheLookup(true)
			slog.Debug("completion served from cache", "request_id", reqID, "cache_key", opts.CacheKey)
			return v.(*Response), nil
		}
		c.tracker.RecordCacheLookup(false)
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		ext := Classify(err)
		c.tracker.RecordError()
		return nil, ext
	}

	req := Request{
		Messages:    msgs,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Timeout:     opts.Timeout,
	}

	start := time.Now()
	resp, err := c.transport.Send(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		ext := Classify(err)
		c.tracker.RecordError()
		slog.Warn("completion failed",
			"request_id", reqID, "kind", ext.Kind, "code", ext.Code, "elapsed", elapsed)
		return nil, ext
	}

	c.tracker.RecordSuccess(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, elapsed)
	slog.Debug("completion succeeded",
		"request_id", reqID, "model", resp.Model, "tokens", resp.Usage.TotalTokens, "elapsed", elapsed)

	if opts.CacheKey != "" {
		c.cache.Put(opts.CacheKey, resp, c.cacheTTL)
	}
	return resp, nil
}

// CompleteFromTemplate renders the template with the supplied variables,
// runs the completion, and recovers structured data from the reply via the
// parse strategy chain. The chain degrades gracefully: a reply that never
// parses comes back as raw text with parse.StrategyNone, unless
// opts.RequireJSON promotes exhaustion to a parse_error.
func (c *Client) CompleteFromTemplate(ctx context.Context, tpl prompt.Template, vars map[string]string, opts Options) (parse.Result, error) {
	rendered, err := prompt.Render(tpl, vars)
	if err != nil {
		return parse.Result{}, fmt.Errorf("rendering template: %w", err)
	}

	resp, err := c.Complete(ctx, []Message{{Role: RoleUser, Content: rendered}}, opts)
	if err != nil {
		return parse.Result{}, err
	}

	result := parse.Parse(resp.Content())
	if !result.Parsed() && opts.RequireJSON {
		return result, &ExternalError{
			Kind:    KindParseError,
			Message: "structured result required but response could not be parsed",
			Details: parse.ErrNotParsed,
		}
	}
	return result, nil
}

// Stream runs a streaming completion, delivering generated text to onChunk
// incrementally. Streamed calls are rate-limited and recorded in metrics but
// never cached; upstream usage accounting is unavailable mid-stream, so only
// the call itself is counted.
func (c *Client) Stream(ctx context.Context, msgs []Message, onChunk func(chunk string) error, opts Options) error {
	reqID := uuid.NewString()

	if err := c.limiter.Acquire(ctx); err != nil {
		ext := Classify(err)
		c.tracker.RecordError()
		return ext
	}

	req := Request{
		Messages:    msgs,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Timeout:     opts.Timeout,
	}

	start := time.Now()
	err := c.transport.Stream(ctx, req, onChunk)
	elapsed := time.Since(start)

	if err != nil {
		ext := Classify(err)
		c.tracker.RecordError()
		slog.Warn("stream failed",
			"request_id", reqID, "kind", ext.Kind, "code", ext.Code, "elapsed", elapsed)
		return ext
	}

	c.tracker.RecordSuccess(opts.Model, 0, 0, elapsed)
	slog.Debug("stream finished", "request_id", reqID, "elapsed", elapsed)
	return nil
}

// HealthCheck issues a minimal low-token completion and reports whether the
// provider answered with any content. The probe bypasses the cache but still
// respects the rate budget.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.Complete(ctx, []Message{{Role: RoleUser, Content: "ping"}}, Options{
		MaxTokens: 5,
		Timeout:   10 * time.Second,
	})
	return err == nil && resp.Content() != ""
}

// Metrics returns a snapshot of the client's counters.
func (c *Client) Metrics() metrics.Snapshot {
	return c.tracker.Snapshot()
}

// ResetMetrics zeroes the client's counters. Explicit operator action only.
func (c *Client) ResetMetrics() {
	c.tracker.Reset()
}
