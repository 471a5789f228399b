// File: internal/services/chat/types.go
package chat

import (
	"context"

	"github.com/vyomb/go-chatrelay/internal/domain"
)

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// MessageStore is the slice of the message repository a stream session
// needs: append a record, read a chat's ordered history, and drop the most
// recently written message of a role. DeleteMostRecent must be idempotent
// on "nothing to delete" since teardown can race a chat deletion.
type MessageStore interface {
	Append(ctx context.Context, chatID, role, content string) error
	ReadAll(ctx context.Context, chatID string) ([]domain.Message, error)
	DeleteMostRecent(ctx context.Context, chatID, role string) error
}
