// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/vyomb/go-chatrelay/internal/domain"
)

// MessageRepository is the append-only message log for chats. Messages are
// never updated; DeleteMostRecentByRole exists solely for rolling back an
// unanswered prompt after an interrupted stream.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
	CountByChatID(ctx context.Context, chatID string) (int64, error)
	DeleteMostRecentByRole(ctx context.Context, chatID string, role string) error
	DeleteByChatID(ctx context.Context, chatID string) error
}
