// Package llm is the resilience layer between application code and an
// upstream generative completion provider. It owns request dispatch under a
// rate budget, response caching, error classification, metrics accounting,
// and recovery of structured data from free-form model output.
package llm

import (
	"context"
	"time"
)

// Message roles, matching the provider wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion exchange handed to a Transport.
// Requests are created per call and never reused.
type Request struct {
	Messages []Message

	// Model overrides the transport's default model when non-empty.
	Model string

	// MaxTokens limits the response length. Zero means transport default.
	MaxTokens int

	// Temperature controls randomness. If nil, the provider default applies.
	Temperature *float64

	// Timeout bounds the network call. Zero means transport default.
	Timeout time.Duration
}

// Choice is one generated alternative in a response.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption for a single request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the provider's answer to a completion request. Immutable once
// produced by a transport.
type Response struct {
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Model   string    `json:"model"`
	Created time.Time `json:"created"`
}

// Content returns the text of the first choice, or "" if there is none.
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Transport performs the network exchange with a provider. Implementations
// must respect context cancellation, surface timeouts distinguishably from
// other network failures, and never retry internally: each Send is exactly
// one upstream attempt, and retry policy belongs to the caller.
type Transport interface {
	// Send performs a single blocking completion call.
	Send(ctx context.Context, req Request) (*Response, error)

	// Stream performs a streaming completion call, invoking onChunk for each
	// incremental piece of generated text. An error returned by onChunk
	// aborts the stream and is returned.
	Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error
}
