package chat

import (
	"context"

	"github.com/vyomb/go-chatrelay/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, id string) (*domain.Chat, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error)
	Rename(ctx context.Context, chatID string, title string) error
	Delete(ctx context.Context, chatID string, userID uint) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
}
