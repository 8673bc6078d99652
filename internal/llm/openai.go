package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultOpenAIBaseURL is the upstream API root.
	defaultOpenAIBaseURL = "https://api.openai.com/v1"

	// defaultOpenAIModel is used when neither the transport nor the request
	// names a model.
	defaultOpenAIModel = "gpt-4o-mini"

	// defaultTimeout bounds a completion call when the request carries none.
	defaultTimeout = 30 * time.Second

	// errorBodyLimit caps how much of an error response body is retained.
	errorBodyLimit = 512
)

// OpenAITransport implements Transport against an OpenAI-compatible chat
// completions endpoint.
type OpenAITransport struct {
	client  *http.Client
	baseURL string
	apiKey  string
	orgID   string
	model   string
	timeout time.Duration
}

// Compile-time check that OpenAITransport satisfies the Transport interface.
var _ Transport = (*OpenAITransport)(nil)

// OpenAIOption configures an OpenAITransport.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	apiKey     string
	orgID      string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// WithAPIKey sets the bearer credential. If not provided, the transport
// reads OPENAI_API_KEY from the environment.
func WithAPIKey(key string) OpenAIOption {
	return func(c *openAIConfig) { c.apiKey = key }
}

// WithOrganization sets the optional organization header. If not provided,
// the transport reads OPENAI_ORG_ID from the environment.
func WithOrganization(org string) OpenAIOption {
	return func(c *openAIConfig) { c.orgID = org }
}

// WithBaseURL overrides the API root, for proxies and tests.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithModel overrides the default model for all requests.
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openAIConfig) { c.httpClient = hc }
}

// NewOpenAITransport creates a transport for an OpenAI-compatible endpoint.
// It returns an error if no API key is available (neither via option nor env).
func NewOpenAITransport(opts ...OpenAIOption) (*OpenAITransport, error) {
	cfg := openAIConfig{
		baseURL: defaultOpenAIBaseURL,
		model:   defaultOpenAIModel,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(&cfg)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: OPENAI_API_KEY not set and no API key provided")
	}
	orgID := cfg.orgID
	if orgID == "" {
		orgID = os.Getenv("OPENAI_ORG_ID")
	}
	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &OpenAITransport{
		client:  httpClient,
		baseURL: cfg.baseURL,
		apiKey:  apiKey,
		orgID:   orgID,
		model:   cfg.model,
		timeout: cfg.timeout,
	}, nil
}

// Model returns the default model configured for this transport.
func (t *OpenAITransport) Model() string {
	return t.model
}

// statusError is a non-2xx provider reply. It carries the exact status code
// and any Retry-After header so Classify does not have to guess from text.
type statusError struct {
	status     int
	body       string
	retryAfter int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.status, e.body)
}

// wireMessage mirrors the provider's message encoding.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireRequest is the chat completions request body.
type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

// wireResponse is the chat completions response body.
type wireResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
}

// Send performs a single chat completion call. The request's timeout (or the
// transport default) is applied as a context deadline, so an overrun aborts
// the in-flight call and surfaces as a timeout distinguishable from other
// network failures.
func (t *OpenAITransport) Send(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.effectiveTimeout(req))
	defer cancel()

	resp, err := t.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}

	out := &Response{
		Choices: make([]Choice, len(decoded.Choices)),
		Usage: Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
		Model:   decoded.Model,
		Created: time.Unix(decoded.Created, 0),
	}
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
	}
	for i, c := range decoded.Choices {
		out.Choices[i] = Choice{
			Index:        c.Index,
			Message:      Message{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: c.FinishReason,
		}
	}
	return out, nil
}

// streamChunk is one server-sent event payload in a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream performs a streaming chat completion call. The response body is a
// sequence of "data: <json>" lines ending with a "data: [DONE]" sentinel;
// each chunk's delta content is handed to onChunk as it arrives.
func (t *OpenAITransport) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.effectiveTimeout(req))
	defer cancel()

	resp, err := t.post(ctx, req, true)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Malformed interleaved chunks are skipped rather than killing
			// the stream.
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onChunk(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// post issues the chat completions request and returns the raw HTTP response
// after checking its status. Non-2xx replies become *statusError.
func (t *OpenAITransport) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = t.model
	}

	body := wireRequest{
		Model:       model,
		Messages:    make([]wireMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	for i, m := range req.Messages {
		body.Messages[i] = wireMessage{Role: m.Role, Content: m.Content}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if t.orgID != "" {
		httpReq.Header.Set("OpenAI-Organization", t.orgID)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()
		return nil, &statusError{
			status:     resp.StatusCode,
			body:       readErrorBody(resp.Body),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return resp, nil
}

func (t *OpenAITransport) effectiveTimeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return t.timeout
}

// parseRetryAfter reads a Retry-After header given in whole seconds.
// Date-format values and garbage yield zero, which means "no hint".
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "unknown error"
	}
	return text
}
