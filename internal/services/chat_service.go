// File: internal/services/chat_service.go
package services

import (
	"context"
	"strings"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/repository/chat"
	"github.com/vyomb/go-chatrelay/internal/repository/message"
	chatservice "github.com/vyomb/go-chatrelay/internal/services/chat"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
)

// ChatService is the gateway for chat lifecycle operations. It brackets the
// streaming sessions: a user message is appended before a stream starts,
// and deletion cancels any stream still running for the chat.
type ChatService struct {
	config      *chatservice.Config
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	store       chatservice.MessageStore
	generator   llm.Generator
	sessions    *chatservice.SessionManager
	markdown    *chatservice.MarkdownRenderer
	logger      Logger
}

func NewChatService(
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	generator llm.Generator,
	config *chatservice.Config,
	logger Logger,
) (*ChatService, error) {
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if messageRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "message repository is required")
	}
	if generator == nil {
		return nil, chatservice.NewValidationError("constructor", "generator is required")
	}
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	return &ChatService{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		store:       &messageStore{messages: messageRepo, chats: chatRepo},
		generator:   generator,
		sessions:    chatservice.NewSessionManager(logger),
		markdown:    chatservice.NewMarkdownRenderer(),
		logger:      logger,
	}, nil
}

// CreateChat opens a new conversation with a placeholder title. The real
// title is generated later, from the first message.
func (s *ChatService) CreateChat(ctx context.Context, userID uint) (*domain.Chat, error) {
	newChat := domain.NewChat(userID)
	createdChat, err := s.chatRepo.Create(ctx, newChat)
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat created", "chat_id", createdChat.ID, "user_id", userID)
	return createdChat, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]domain.Chat, error) {
	return s.chatRepo.FindByUserID(ctx, userID)
}

func (s *ChatService) RenameChat(ctx context.Context, userID uint, chatID, title string) error {
	if strings.TrimSpace(title) == "" {
		return chatservice.NewValidationError("rename_chat", "chat title cannot be empty")
	}
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return err
	}
	return s.chatRepo.Rename(ctx, chatID, title)
}

// GenerateTitle derives a short display title from the chat's first user
// message and stores it as the chat's name.
func (s *ChatService) GenerateTitle(ctx context.Context, userID uint, chatID, firstMessage string) (string, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return "", err
	}

	title, err := chatservice.GenerateTitle(ctx, s.generator, s.config, firstMessage)
	if err != nil {
		return "", err
	}
	if err := s.chatRepo.Rename(ctx, chatID, title); err != nil {
		return "", err
	}
	return title, nil
}

func (s *ChatService) GetChatMessages(ctx context.Context, userID uint, chatID string) ([]domain.Message, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.messageRepo.FindByChatID(ctx, chatID)
}

// RenderMessageHTML converts one message's markdown content to HTML.
func (s *ChatService) RenderMessageHTML(content string) (string, error) {
	return s.markdown.Render(content)
}

// AppendUserMessage persists a prompt. It must complete before a stream is
// started for the same turn so the session's history read sees the prompt.
func (s *ChatService) AppendUserMessage(ctx context.Context, userID uint, chatID, content string) error {
	if strings.TrimSpace(content) == "" {
		return chatservice.NewValidationError("append_message", "message content cannot be empty")
	}
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return err
	}
	return s.store.Append(ctx, chatID, domain.RoleUser, content)
}

// StreamChatReply runs one streaming exchange over the given channel and
// blocks until the session reaches a terminal state. Any session already
// active for the chat is canceled and awaited first.
func (s *ChatService) StreamChatReply(ctx context.Context, userID uint, chatID string, channel chatservice.ClientChannel) error {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return err
	}

	session := chatservice.NewStreamSession(ctx, chatID, s.store, s.generator, channel, s.config, s.logger)
	s.sessions.Run(session)
	return nil
}

// DeleteChat cancels any active stream for the chat, waits for its
// teardown, then removes the chat and its messages.
func (s *ChatService) DeleteChat(ctx context.Context, userID uint, chatID string) error {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return err
	}

	s.sessions.CancelActive(chatID)

	if err := s.messageRepo.DeleteByChatID(ctx, chatID); err != nil {
		return err
	}
	return s.chatRepo.Delete(ctx, chatID, userID)
}

func (s *ChatService) authorize(ctx context.Context, userID uint, chatID string) (*domain.Chat, error) {
	chatRecord, err := s.chatRepo.FindByID(ctx, chatID)
	if err != nil || chatRecord.UserID != userID {
		return nil, chatservice.NewUnauthorizedError(userID, chatID)
	}
	return chatRecord, nil
}

// messageStore narrows the repositories to what a stream session consumes.
// Appends also bump the chat's updated_at so chat lists sort by activity.
type messageStore struct {
	messages message.MessageRepository
	chats    chat.ChatRepository
}

func (s *messageStore) Append(ctx context.Context, chatID, role, content string) error {
	_, err := s.messages.Create(ctx, &domain.Message{ChatID: chatID, Role: role, Content: content})
	if err != nil {
		return err
	}
	_ = s.chats.TouchUpdatedAt(ctx, chatID)
	return nil
}

func (s *messageStore) ReadAll(ctx context.Context, chatID string) ([]domain.Message, error) {
	return s.messages.FindByChatID(ctx, chatID)
}

func (s *messageStore) DeleteMostRecent(ctx context.Context, chatID, role string) error {
	return s.messages.DeleteMostRecentByRole(ctx, chatID, role)
}
