// File: internal/services/chat/errors.go
package chat

import "fmt"

type ErrorType string

const (
	ErrTypeHistory      ErrorType = "HISTORY_UNAVAILABLE"
	ErrTypeUnavailable  ErrorType = "UPSTREAM_UNAVAILABLE"
	ErrTypeProtocol     ErrorType = "UPSTREAM_PROTOCOL"
	ErrTypeTimeout      ErrorType = "UPSTREAM_TIMEOUT"
	ErrTypePersist      ErrorType = "PERSIST_FAILED"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    string
	UserID    uint
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

func NewHistoryError(chatID string, cause error) *ChatError {
	return &ChatError{
		Type:      ErrTypeHistory,
		Operation: "load_history",
		Message:   "chat history could not be loaded",
		ChatID:    chatID,
		Cause:     cause,
	}
}

func NewUpstreamError(errType ErrorType, operation string, cause error) *ChatError {
	return &ChatError{
		Type:      errType,
		Operation: operation,
		Message:   "upstream generation failed",
		Cause:     cause,
	}
}

func NewTimeoutError(chatID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeTimeout,
		Operation: "stream",
		Message:   "no upstream progress within the idle window",
		ChatID:    chatID,
	}
}

func NewPersistError(chatID string, cause error) *ChatError {
	return &ChatError{
		Type:      ErrTypePersist,
		Operation: "commit",
		Message:   "failed to persist assistant reply",
		ChatID:    chatID,
		Cause:     cause,
	}
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewUnauthorizedError(userID uint, chatID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeUnauthorized,
		Operation: "authorization",
		Message:   "chat not found or unauthorized",
		UserID:    userID,
		ChatID:    chatID,
	}
}
