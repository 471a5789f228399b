// File: internal/services/chat/manager.go
package chat

import "sync"

type sessionEntry struct {
	session *StreamSession
	gone    chan struct{}
}

// SessionManager enforces at most one active StreamSession per chat.
// Starting a session for a chat cancels any existing session for the same
// id and awaits its teardown before the new one registers. The server does
// not trust the client to close its previous stream first.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]*sessionEntry
	logger Logger
}

func NewSessionManager(logger Logger) *SessionManager {
	return &SessionManager{
		active: make(map[string]*sessionEntry),
		logger: logger,
	}
}

// Run registers the session as the chat's active one, superseding any
// predecessor, drives it to completion, and deregisters it. Blocks until
// the session reaches a terminal state.
func (m *SessionManager) Run(s *StreamSession) {
	m.acquire(s)
	defer m.release(s)
	s.Run()
}

// CancelActive cancels the chat's active session, if any, and waits for its
// teardown. Used by chat deletion.
func (m *SessionManager) CancelActive(chatID string) {
	m.mu.Lock()
	e, ok := m.active[chatID]
	m.mu.Unlock()
	if !ok {
		return
	}
	e.session.Cancel()
	<-e.gone
}

// ActiveCount reports how many sessions are currently running.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *SessionManager) acquire(s *StreamSession) {
	for {
		m.mu.Lock()
		prev, ok := m.active[s.chatID]
		if !ok {
			m.active[s.chatID] = &sessionEntry{session: s, gone: make(chan struct{})}
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		m.logger.Info("superseding active stream", "chat_id", s.chatID)
		prev.session.Cancel()
		<-prev.gone
	}
}

func (m *SessionManager) release(s *StreamSession) {
	m.mu.Lock()
	if e, ok := m.active[s.chatID]; ok && e.session == s {
		delete(m.active, s.chatID)
		close(e.gone)
	}
	m.mu.Unlock()
}
