// File: internal/repository/chat/chat_repository.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")
var ErrUnauthorizedAccess = errors.New("unauthorized access to chat")

type gormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

// Create inserts a chat. The UUID identity is assigned by the caller
// (domain.NewChat), never by the database.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if err := r.validateChatInput(chat); err != nil {
		log.Printf("[ChatRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).Create(chat).Error
	if err != nil {
		log.Printf("[ChatRepository] Database error during chat creation for user ID %d: %v", chat.UserID, err)
		return nil, errors.New("database error creating chat")
	}

	log.Printf("[ChatRepository] Chat created successfully with ID: %s for user: %d", chat.ID, chat.UserID)
	return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error
	return r.handleFindError(err, &chat, "FindByID")
}

func (r *gormChatRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error) {
	if userID == 0 {
		return nil, errors.New("invalid user ID")
	}

	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, created_at DESC").
		Find(&chats).Error

	if err != nil {
		log.Printf("[ChatRepository] Database error finding chats for user ID %d: %v", userID, err)
		return nil, errors.New("database error fetching chats")
	}

	return chats, nil
}

// Rename updates the display title, the only mutable chat field.
func (r *gormChatRepository) Rename(ctx context.Context, chatID string, title string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}
	if err := r.validateChatTitle(title); err != nil {
		return fmt.Errorf("title validation: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Update("title", title)

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error renaming chat ID %s: %v", chatID, result.Error)
		return errors.New("database error renaming chat")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes the chat row; the caller is responsible for deleting its
// messages first (sqlite foreign keys are not relied on here).
func (r *gormChatRepository) Delete(ctx context.Context, chatID string, userID uint) error {
	if chatID == "" || userID == 0 {
		return errors.New("invalid chat ID or user ID")
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		Delete(&domain.Chat{})

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error deleting chat ID %s for user ID %d: %v", chatID, userID, result.Error)
		return errors.New("database error deleting chat")
	}

	if result.RowsAffected == 0 {
		return ErrUnauthorizedAccess
	}

	log.Printf("[ChatRepository] Chat deleted successfully: ID %s for user %d", chatID, userID)
	return nil
}

func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP"))

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error updating timestamp for chat ID %s: %v", chatID, result.Error)
		return errors.New("database error updating chat timestamp")
	}

	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}

	return nil
}

// ===== VALIDATION HELPERS =====

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if chat.ID == "" {
		return errors.New("chat ID is required")
	}
	if chat.UserID == 0 {
		return errors.New("user ID is required")
	}
	return r.validateChatTitle(chat.Title)
}

func (r *gormChatRepository) validateChatTitle(title string) error {
	if len(title) > 200 {
		return errors.New("title must be 200 characters or less")
	}
	if strings.Contains(title, "<script") || strings.Contains(title, "javascript:") {
		return errors.New("invalid characters detected in title")
	}
	return nil
}

// handleFindError - secure error handling without data leakage
func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err == nil {
		return chat, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}

	log.Printf("[ChatRepository] %s database error: %v", operation, err)
	return nil, errors.New("database query failed")
}
