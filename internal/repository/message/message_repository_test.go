// File: internal/repository/message/message_repository_test.go
package message

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vyomb/go-chatrelay/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Message{}))
	return db
}

func seedConversation(t *testing.T, repo MessageRepository, chatID string) {
	t.Helper()
	ctx := context.Background()
	for _, m := range []domain.Message{
		{ChatID: chatID, Role: domain.RoleUser, Content: "first question"},
		{ChatID: chatID, Role: domain.RoleAssistant, Content: "first answer"},
		{ChatID: chatID, Role: domain.RoleUser, Content: "second question"},
	} {
		msg := m
		_, err := repo.Create(ctx, &msg)
		require.NoError(t, err)
	}
}

func TestMessageRepositoryOrdering(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	seedConversation(t, repo, "chat-1")

	messages, err := repo.FindByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first question", messages[0].Content)
	assert.Equal(t, "first answer", messages[1].Content)
	assert.Equal(t, "second question", messages[2].Content)
}

func TestMessageRepositoryCreateValidation(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Message{ChatID: "chat-1", Role: "oracle", Content: "hi"})
	assert.Error(t, err)

	_, err = repo.Create(ctx, &domain.Message{ChatID: "chat-1", Role: domain.RoleUser, Content: "   "})
	assert.Error(t, err)

	_, err = repo.Create(ctx, &domain.Message{Role: domain.RoleUser, Content: "hi"})
	assert.Error(t, err)
}

func TestDeleteMostRecentByRole(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	seedConversation(t, repo, "chat-1")
	ctx := context.Background()

	// Removes the trailing unanswered prompt, not the earlier one.
	require.NoError(t, repo.DeleteMostRecentByRole(ctx, "chat-1", domain.RoleUser))

	messages, err := repo.FindByChatID(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first question", messages[0].Content)
	assert.Equal(t, "first answer", messages[1].Content)

	// The assistant reply is untouched by user-role rollbacks.
	require.NoError(t, repo.DeleteMostRecentByRole(ctx, "chat-1", domain.RoleUser))
	messages, err = repo.FindByChatID(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleAssistant, messages[0].Role)
}

func TestDeleteMostRecentByRoleIdempotent(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	ctx := context.Background()

	// Nothing to delete is success: rollback may race a chat deletion.
	assert.NoError(t, repo.DeleteMostRecentByRole(ctx, "chat-1", domain.RoleUser))
	assert.NoError(t, repo.DeleteMostRecentByRole(ctx, "chat-1", domain.RoleUser))

	// Bad inputs are still rejected.
	assert.Error(t, repo.DeleteMostRecentByRole(ctx, "", domain.RoleUser))
	assert.Error(t, repo.DeleteMostRecentByRole(ctx, "chat-1", "oracle"))
}

func TestDeleteByChatID(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	seedConversation(t, repo, "chat-1")
	seedConversation(t, repo, "chat-2")
	ctx := context.Background()

	require.NoError(t, repo.DeleteByChatID(ctx, "chat-1"))

	count, err := repo.CountByChatID(ctx, "chat-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountByChatID(ctx, "chat-2")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}
