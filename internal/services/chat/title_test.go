// File: internal/services/chat/title_test.go
package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
)

type completionStub struct {
	reply string
	err   error
	seen  []llm.Message
}

func (c *completionStub) StreamChat(ctx context.Context, history []llm.Message, onFragment func(string) error) error {
	return errors.New("not implemented")
}

func (c *completionStub) Complete(ctx context.Context, history []llm.Message) (string, error) {
	c.seen = history
	return c.reply, c.err
}

func TestGenerateTitle(t *testing.T) {
	gen := &completionStub{reply: `"Transformer Paper Summary"`}

	title, err := GenerateTitle(context.Background(), gen, DefaultConfig(), "Summarize the paper on attention is all you need")
	require.NoError(t, err)
	assert.Equal(t, "Transformer Paper Summary", title)

	// The request carries the instruction prompt plus the first message.
	require.Len(t, gen.seen, 2)
	assert.Equal(t, domain.RoleSystem, gen.seen[0].Role)
	assert.Equal(t, domain.RoleUser, gen.seen[1].Role)
	assert.Contains(t, gen.seen[1].Content, "attention is all you need")
}

func TestGenerateTitleEmptyFirstMessage(t *testing.T) {
	gen := &completionStub{reply: "should not be called"}

	title, err := GenerateTitle(context.Background(), gen, DefaultConfig(), "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChatTitle, title)
	assert.Nil(t, gen.seen)
}

func TestGenerateTitleBlankModelReply(t *testing.T) {
	gen := &completionStub{reply: "  \n"}

	title, err := GenerateTitle(context.Background(), gen, DefaultConfig(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChatTitle, title)
}

func TestGenerateTitleUpstreamError(t *testing.T) {
	gen := &completionStub{err: llm.NewUnavailableError("complete", "down", nil)}

	_, err := GenerateTitle(context.Background(), gen, DefaultConfig(), "hello there")
	require.Error(t, err)

	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeUnavailable, chatErr.Type)
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := "An Extremely Long Generated Title That Keeps Going And Going Well Past Any Reasonable Display Width"
	got := sanitizeTitle(long, 20)
	assert.LessOrEqual(t, len([]rune(got)), 20)
	assert.NotEmpty(t, got)
}
