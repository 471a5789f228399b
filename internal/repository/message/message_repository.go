// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Create appends a message to the chat's log.
func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		log.Printf("[MessageRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error during message creation for chat ID %s: %v", message.ChatID, err)
		return nil, errors.New("database error creating message")
	}

	return message, nil
}

// FindByChatID returns the chat's full log in history order: created_at
// ascending, insertion order breaking ties.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at asc, id asc").
		Find(&messages).Error

	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for chat ID %s: %v", chatID, err)
		return nil, errors.New("database error fetching messages")
	}

	return messages, nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, errors.New("invalid chat ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for chat ID %s: %v", chatID, err)
		return 0, errors.New("database error counting chat messages")
	}

	return count, nil
}

// DeleteMostRecentByRole removes the newest message of the given role for a
// chat. Idempotent: nothing to delete is success, since a rollback may race
// with a concurrent chat deletion.
func (r *gormMessageRepository) DeleteMostRecentByRole(ctx context.Context, chatID string, role string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}
	if !domain.ValidRole(role) {
		return errors.New("invalid message role")
	}

	var latest domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND role = ?", chatID, role).
		Order("created_at desc, id desc").
		First(&latest).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		log.Printf("[MessageRepository] Database error locating latest %s message for chat ID %s: %v", role, chatID, err)
		return errors.New("database error locating message")
	}

	result := r.db.WithContext(ctx).Delete(&domain.Message{}, latest.ID)
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error deleting message ID %d for chat ID %s: %v", latest.ID, chatID, result.Error)
		return errors.New("database error deleting message")
	}

	log.Printf("[MessageRepository] Rolled back latest %s message (ID %d) for chat %s", role, latest.ID, chatID)
	return nil
}

// DeleteByChatID performs a bulk deletion of all messages associated with a given chatID.
func (r *gormMessageRepository) DeleteByChatID(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&domain.Message{})
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error deleting messages for chat ID %s: %v", chatID, result.Error)
		return errors.New("database error deleting messages by chat ID")
	}

	log.Printf("[MessageRepository] Deleted %d messages for chat %s", result.RowsAffected, chatID)
	return nil
}

// ===== VALIDATION HELPERS =====

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ChatID == "" {
		return errors.New("chat ID is required")
	}
	if !domain.ValidRole(message.Role) {
		return errors.New("invalid message role")
	}
	if strings.TrimSpace(message.Content) == "" {
		return errors.New("message content cannot be empty")
	}
	return nil
}
