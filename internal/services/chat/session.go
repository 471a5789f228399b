// File: internal/services/chat/session.go
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateStreaming State = "STREAMING"
	StateCompleted State = "COMPLETED"
	StateAborted   State = "ABORTED"
	StateFailed    State = "FAILED"
)

// StreamSession orchestrates one streaming exchange for one chat turn:
// read history, stream fragments from the generator, relay them downstream,
// and finalize storage according to the outcome. Exactly one terminal state
// is reached per session.
//
// All cancellation triggers (client disconnect, gateway cancel,
// supersession by a newer session, overall deadline) converge on the
// session's own context; the run loop checks it at every suspension point
// instead of sharing ad hoc flags between callbacks and the loop.
type StreamSession struct {
	chatID    string
	store     MessageStore
	generator llm.Generator
	channel   ClientChannel
	config    *Config
	logger    Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	replyCommitted bool

	disconnected atomic.Bool
	buf          strings.Builder
	done         chan struct{}
}

func NewStreamSession(
	parent context.Context,
	chatID string,
	store MessageStore,
	generator llm.Generator,
	channel ClientChannel,
	config *Config,
	logger Logger,
) *StreamSession {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithTimeout(parent, config.StreamTimeout)
	return &StreamSession{
		chatID:    chatID,
		store:     store,
		generator: generator,
		channel:   channel,
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
}

func (s *StreamSession) ChatID() string { return s.chatID }

// Cancel aborts the session from outside (chat deletion, supersession).
// Safe to call at any point, including after teardown.
func (s *StreamSession) Cancel() { s.cancel() }

// Done is closed once the session has reached a terminal state and
// finished teardown.
func (s *StreamSession) Done() <-chan struct{} { return s.done }

func (s *StreamSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *StreamSession) ReplyCommitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyCommitted
}

// Run drives the session to a terminal state and blocks until teardown is
// complete. The channel is always closed on the way out, so a connected
// client sees a done or error event, never silence.
func (s *StreamSession) Run() {
	defer close(s.done)
	defer s.channel.Close()
	defer s.cancel()

	s.channel.OnDisconnect(func() {
		s.disconnected.Store(true)
		s.cancel()
	})

	history, err := s.store.ReadAll(s.ctx, s.chatID)
	if err != nil || len(history) == 0 {
		s.fail(NewHistoryError(s.chatID, err), false)
		return
	}

	// Rollback only ever targets a trailing unanswered prompt. If the last
	// message is not user-role there is nothing to roll back.
	promptPending := history[len(history)-1].Role == domain.RoleUser

	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	s.setState(StateStreaming)
	s.logger.Info("stream started", "chat_id", s.chatID, "history_length", len(msgs))

	frags := make(chan string)
	genDone := make(chan error, 1)
	go func() {
		err := s.generator.StreamChat(s.ctx, msgs, func(fragment string) error {
			select {
			case frags <- fragment:
				return nil
			case <-s.ctx.Done():
				return s.ctx.Err()
			}
		})
		genDone <- err
		close(frags)
	}()

	idle := time.NewTimer(s.config.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case frag, ok := <-frags:
			if !ok {
				s.finish(<-genDone, promptPending)
				return
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.config.IdleTimeout)

			// Accumulate before the connectivity check so content is never
			// lost between "decide to send" and "remember what was sent".
			s.buf.WriteString(frag)

			if !s.channel.IsConnected() {
				// Client-gone fast path: stop relaying now rather than
				// waiting for the generator to finish naturally.
				s.cancel()
				s.abort(promptPending)
				return
			}
			if err := s.channel.Send(Event{Content: frag}); err != nil {
				s.logger.Warn("fragment send failed", "chat_id", s.chatID, "error", err)
			}

		case <-s.ctx.Done():
			if errors.Is(s.ctx.Err(), context.DeadlineExceeded) && !s.disconnected.Load() {
				s.fail(NewTimeoutError(s.chatID), promptPending)
			} else {
				s.abort(promptPending)
			}
			return

		case <-idle.C:
			s.cancel()
			s.fail(NewTimeoutError(s.chatID), promptPending)
			return
		}
	}
}

// finish handles the generator's fragment sequence ending, naturally or
// with an error.
func (s *StreamSession) finish(genErr error, promptPending bool) {
	if s.disconnected.Load() {
		s.abort(promptPending)
		return
	}

	if genErr != nil {
		switch {
		case errors.Is(genErr, context.Canceled):
			s.abort(promptPending)
		case errors.Is(genErr, context.DeadlineExceeded):
			s.fail(NewTimeoutError(s.chatID), promptPending)
		default:
			s.fail(NewUpstreamError(upstreamErrType(genErr), "stream", genErr), promptPending)
		}
		return
	}

	s.commit(promptPending)
}

// commit persists the accumulated reply and marks the session Completed.
// Commit is a one-way gate: once replyCommitted is set, a late
// cancellation must not trigger rollback.
func (s *StreamSession) commit(promptPending bool) {
	reply := s.buf.String()

	if len(reply) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
		defer cancel()
		if err := s.store.Append(ctx, s.chatID, domain.RoleAssistant, reply); err != nil {
			s.fail(NewPersistError(s.chatID, err), promptPending)
			return
		}
	}

	s.mu.Lock()
	s.replyCommitted = true
	s.state = StateCompleted
	s.mu.Unlock()

	if err := s.channel.Send(Event{Done: true}); err != nil {
		s.logger.Debug("done event send failed", "chat_id", s.chatID, "error", err)
	}
	s.logger.Info("stream completed", "chat_id", s.chatID, "reply_length", len(reply))
}

func (s *StreamSession) abort(promptPending bool) {
	s.mu.Lock()
	committed := s.replyCommitted
	s.state = StateAborted
	s.mu.Unlock()

	s.logger.Info("stream aborted", "chat_id", s.chatID, "reply_committed", committed)
	if !committed {
		s.rollback(promptPending)
	}
}

func (s *StreamSession) fail(cerr *ChatError, promptPending bool) {
	s.mu.Lock()
	committed := s.replyCommitted
	s.state = StateFailed
	s.mu.Unlock()

	s.logger.Error("stream failed", "chat_id", s.chatID, "type", string(cerr.Type), "error", cerr)

	if s.channel.IsConnected() {
		if err := s.channel.Send(Event{Error: string(cerr.Type)}); err != nil {
			s.logger.Debug("error event send failed", "chat_id", s.chatID, "error", err)
		}
	}
	if !committed {
		s.rollback(promptPending)
	}
}

// rollback removes the trailing unanswered prompt so a chat's history never
// ends on a question nobody answered. Best effort: failures are logged and
// teardown continues.
func (s *StreamSession) rollback(promptPending bool) {
	if !promptPending {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()

	if err := s.store.DeleteMostRecent(ctx, s.chatID, domain.RoleUser); err != nil {
		s.logger.Error("prompt rollback failed", "chat_id", s.chatID, "error", err)
		return
	}
	s.logger.Info("unanswered prompt rolled back", "chat_id", s.chatID)
}

func (s *StreamSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func upstreamErrType(err error) ErrorType {
	switch llm.ErrType(err) {
	case llm.ErrTypeProtocol:
		return ErrTypeProtocol
	case llm.ErrTypeTimeout:
		return ErrTypeTimeout
	default:
		return ErrTypeUnavailable
	}
}
