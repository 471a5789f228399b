// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vyomb/go-chatrelay/internal/middleware"
	"github.com/vyomb/go-chatrelay/internal/services"
	chatservice "github.com/vyomb/go-chatrelay/internal/services/chat"
)

type ChatHandler struct {
	ChatService *services.ChatService
}

func NewChatHandler(cs *services.ChatService) *ChatHandler {
	return &ChatHandler{ChatService: cs}
}

// GetUserChats retrieves all chats for the authenticated user.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.ChatService.ListChats(r.Context(), userID)
	if err != nil {
		writeError(w, "Could not retrieve chats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// CreateChat opens a new conversation.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chat, err := h.ChatService.CreateChat(r.Context(), userID)
	if err != nil {
		writeError(w, "Could not create chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// RenameChat updates a chat's display title.
func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.ChatService.RenameChat(r.Context(), userID, chatID, req.Title); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": req.Title})
}

// GenerateTitle derives a chat title from the first user message and stores it.
func (h *ChatHandler) GenerateTitle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	var req struct {
		FirstMessage string `json:"first_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	title, err := h.ChatService.GenerateTitle(r.Context(), userID, chatID, req.FirstMessage)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"chatName": title})
}

// GetChatMessages retrieves all messages for a chat, in order. With
// ?format=html, message content is rendered from markdown.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	messages, err := h.ChatService.GetChatMessages(r.Context(), userID, chatID)
	if err != nil {
		writeChatError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		type renderedMessage struct {
			ID      uint   `json:"id"`
			Role    string `json:"role"`
			Content string `json:"content"`
			HTML    string `json:"html"`
		}
		rendered := make([]renderedMessage, 0, len(messages))
		for _, m := range messages {
			html, err := h.ChatService.RenderMessageHTML(m.Content)
			if err != nil {
				log.Printf("[ChatHandler] Markdown render failed for message %d: %v", m.ID, err)
				html = m.Content
			}
			rendered = append(rendered, renderedMessage{ID: m.ID, Role: m.Role, Content: m.Content, HTML: html})
		}
		writeJSON(w, http.StatusOK, rendered)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// AppendMessage persists a user prompt. The client calls this before
// opening the stream for the turn.
func (h *ChatHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.ChatService.AppendUserMessage(r.Context(), userID, chatID, req.Message); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// StreamChat opens the SSE stream that relays the assistant reply for the
// chat's latest prompt. Blocks until the streaming session finishes.
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	channel, err := newSSEChannel(w, r)
	if err != nil {
		writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	if err := h.ChatService.StreamChatReply(r.Context(), userID, chatID, channel); err != nil {
		// Pre-stream authorization failure; headers are already out, so the
		// refusal goes down the event stream.
		_ = channel.Send(chatservice.Event{Error: string(chatservice.ErrTypeUnauthorized)})
		channel.Close()
	}
}

// DeleteChat removes a chat and its messages, cancelling any active stream.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	chatID := mux.Vars(r)["id"]

	if err := h.ChatService.DeleteChat(r.Context(), userID, chatID); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeChatError maps service error types onto HTTP statuses.
func writeChatError(w http.ResponseWriter, err error) {
	var chatErr *chatservice.ChatError
	if errors.As(err, &chatErr) {
		switch chatErr.Type {
		case chatservice.ErrTypeUnauthorized:
			writeError(w, "Chat not found", http.StatusNotFound)
			return
		case chatservice.ErrTypeValidation:
			writeError(w, chatErr.Message, http.StatusBadRequest)
			return
		case chatservice.ErrTypeUnavailable, chatservice.ErrTypeTimeout, chatservice.ErrTypeProtocol:
			writeError(w, "Upstream service unavailable", http.StatusBadGateway)
			return
		}
	}
	writeError(w, "Internal server error", http.StatusInternalServerError)
}
