package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// defaultAnthropicModel is the model used when no override is provided.
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	// defaultAnthropicMaxTokens is the default maximum output tokens per
	// request. The Messages API requires an explicit value.
	defaultAnthropicMaxTokens = 4096
)

// AnthropicTransport implements Transport using the official Anthropic SDK,
// so the client layer stays provider-agnostic. SDK retries are disabled:
// the resilience layer owns retry policy, and a transport must perform
// exactly one upstream attempt per Send.
type AnthropicTransport struct {
	client anthropic.Client
	model  string
}

// Compile-time check that AnthropicTransport satisfies the Transport interface.
var _ Transport = (*AnthropicTransport)(nil)

// AnthropicOption configures an AnthropicTransport.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	apiKey  string
	model   string
	baseURL string
}

// WithAnthropicAPIKey sets the API key. If not provided, the transport reads
// ANTHROPIC_API_KEY from the environment.
func WithAnthropicAPIKey(key string) AnthropicOption {
	return func(c *anthropicConfig) { c.apiKey = key }
}

// WithAnthropicModel overrides the default model for all requests.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) { c.model = model }
}

// WithAnthropicBaseURL overrides the API root, for proxies and tests.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) { c.baseURL = url }
}

// NewAnthropicTransport creates a transport backed by the Anthropic SDK.
// It returns an error if no API key is available (neither via option nor env).
func NewAnthropicTransport(opts ...AnthropicOption) (*AnthropicTransport, error) {
	cfg := anthropicConfig{
		model: defaultAnthropicModel,
	}
	for _, o := range opts {
		o(&cfg)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: ANTHROPIC_API_KEY not set and no API key provided")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &AnthropicTransport{
		client: anthropic.NewClient(clientOpts...),
		model:  cfg.model,
	}, nil
}

// Model returns the default model configured for this transport.
func (t *AnthropicTransport) Model() string {
	return t.model
}

// Send performs a single Messages API call.
func (t *AnthropicTransport) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	msg, err := t.client.Messages.New(ctx, t.params(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: completion failed: %w", err)
	}

	// Extract text from content blocks.
	var content string
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += variant.Text
		}
	}

	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	return &Response{
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: RoleAssistant, Content: content},
				FinishReason: string(msg.StopReason),
			},
		},
		Usage:   usage,
		Model:   string(msg.Model),
		Created: time.Now(),
	}, nil
}

// Stream performs a streaming Messages API call, forwarding each text delta
// to onChunk.
func (t *AnthropicTransport) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	stream := t.client.Messages.NewStreaming(ctx, t.params(req))
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := onChunk(delta.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic: stream failed: %w", err)
	}
	return nil
}

// params converts a Request to Messages API parameters. System messages map
// to the system field; user and assistant messages keep their order.
func (t *AnthropicTransport) params(req Request) anthropic.MessageNewParams {
	model := t.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}
