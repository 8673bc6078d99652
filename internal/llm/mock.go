package llm

import (
	"context"
	"sync"
)

// MockReply defines a canned reply for the mock transport. For Send calls,
// Response or Err is used; for Stream calls the Chunks are delivered in order
// (falling back to the Response content as a single chunk).
type MockReply struct {
	Response *Response
	Chunks   []string
	Err      error
}

// TextReply builds a minimal successful reply with the given content.
func TextReply(content string) MockReply {
	return MockReply{Response: &Response{
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: content}, FinishReason: "stop"}},
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Model:   "mock",
	}}
}

// MockTransport is a test double that returns pre-configured replies in
// sequence. After all replies are exhausted, it keeps returning the last one.
// It records every request for later assertion.
type MockTransport struct {
	mu      sync.Mutex
	replies []MockReply
	calls   []Request
	idx     int
}

// Compile-time check that MockTransport satisfies the Transport interface.
var _ Transport = (*MockTransport)(nil)

// NewMockTransport creates a mock that returns the given replies in order.
// If no replies are provided, Send returns an empty Response.
func NewMockTransport(replies ...MockReply) *MockTransport {
	return &MockTransport{replies: replies}
}

// Send returns the next canned reply and records the request.
// It respects context cancellation.
func (m *MockTransport) Send(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := m.next(req)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Response == nil {
		return &Response{Model: "mock"}, nil
	}
	return r.Response, nil
}

// Stream delivers the next canned reply's chunks to onChunk in order.
func (m *MockTransport) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := m.next(req)
	if r.Err != nil {
		return r.Err
	}

	chunks := r.Chunks
	if chunks == nil && r.Response != nil {
		chunks = []string{r.Response.Content()}
	}
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

// next advances the reply sequence and records the request.
func (m *MockTransport) next(req Request) MockReply {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.replies) == 0 {
		return MockReply{}
	}
	r := m.replies[m.idx]
	if m.idx < len(m.replies)-1 {
		m.idx++
	}
	return r
}

// Calls returns a copy of all requests received by this mock.
func (m *MockTransport) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many requests the mock has received.
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears call history and resets the reply index to zero.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
	m.idx = 0
}
