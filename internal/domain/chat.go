// File: internal/domain/chat.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is the placeholder title a chat carries until one is
// generated from its first prompt.
const DefaultChatTitle = "New Chat"

// Chat represents a single conversation thread.
type Chat struct {
	ID        string    `json:"uuid" gorm:"primaryKey;size:36"`
	UserID    uint      `json:"-" gorm:"not null;index"` // The ID of the user who owns the chat
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChat creates a chat for the given owner with a fresh UUID identity.
func NewChat(userID uint) *Chat {
	return &Chat{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  DefaultChatTitle,
	}
}
