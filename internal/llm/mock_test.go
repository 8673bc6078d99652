package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/llm"
)

func TestMockTransport_RepliesInSequence(t *testing.T) {
	mock := llm.NewMockTransport(
		llm.TextReply("one"),
		llm.MockReply{Err: errors.New("transient")},
		llm.TextReply("three"),
	)

	ctx := context.Background()
	req := llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}}

	r1, err := mock.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "one", r1.Content())

	_, err = mock.Send(ctx, req)
	require.Error(t, err)

	r3, err := mock.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "three", r3.Content())

	// Exhausted: keeps returning the last reply.
	r4, err := mock.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "three", r4.Content())
}

func TestMockTransport_NoRepliesReturnsEmpty(t *testing.T) {
	mock := llm.NewMockTransport()

	resp, err := mock.Send(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content())
	assert.Equal(t, "mock", resp.Model)
}

func TestMockTransport_RecordsCalls(t *testing.T) {
	mock := llm.NewMockTransport(llm.TextReply("ok"))

	ctx := context.Background()
	_, _ = mock.Send(ctx, llm.Request{Model: "a"})
	_, _ = mock.Send(ctx, llm.Request{Model: "b"})

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Model)
	assert.Equal(t, "b", calls[1].Model)
}

func TestMockTransport_RespectsCancelledContext(t *testing.T) {
	mock := llm.NewMockTransport(llm.TextReply("ok"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Send(ctx, llm.Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.CallCount())
}

func TestMockTransport_StreamFallsBackToResponseContent(t *testing.T) {
	mock := llm.NewMockTransport(llm.TextReply("whole message"))

	var chunks []string
	err := mock.Stream(context.Background(), llm.Request{}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"whole message"}, chunks)
}

func TestMockTransport_Reset(t *testing.T) {
	mock := llm.NewMockTransport(llm.TextReply("one"), llm.TextReply("two"))

	ctx := context.Background()
	_, _ = mock.Send(ctx, llm.Request{})
	_, _ = mock.Send(ctx, llm.Request{})
	mock.Reset()

	assert.Equal(t, 0, mock.CallCount())
	resp, err := mock.Send(ctx, llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Content())
}
