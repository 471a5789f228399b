// File: internal/domain/message.go
package domain

import "time"

// Message roles. Messages are immutable once written; the only mutation the
// system ever performs is deleting the most recent user message of a chat
// when an interrupted stream is rolled back.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single message within a chat. CreatedAt is the
// ordering key; the autoincrement ID breaks ties in insertion order.
type Message struct {
	ID        uint      `json:"-" gorm:"primarykey"`
	ChatID    string    `json:"chat_id" gorm:"not null;size:36;index"`
	Role      string    `json:"role" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRole reports whether role is one of the three message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}
