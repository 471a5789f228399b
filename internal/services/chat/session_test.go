// File: internal/services/chat/session_test.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
)

// fakeStore is an in-memory MessageStore that records every mutation.
type fakeStore struct {
	mu        sync.Mutex
	history   []domain.Message
	appended  []domain.Message
	deleted   []string
	appendErr error
	readErr   error
}

func newFakeStore(messages ...domain.Message) *fakeStore {
	return &fakeStore{history: messages}
}

func (s *fakeStore) Append(ctx context.Context, chatID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	m := domain.Message{ChatID: chatID, Role: role, Content: content}
	s.history = append(s.history, m)
	s.appended = append(s.appended, m)
	return nil
}

func (s *fakeStore) ReadAll(ctx context.Context, chatID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *fakeStore) DeleteMostRecent(ctx context.Context, chatID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, role)
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == role {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) appendedMessages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.appended))
	copy(out, s.appended)
	return out
}

func (s *fakeStore) deleteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

func (s *fakeStore) messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// fakeChannel is an in-memory ClientChannel with a test-triggered disconnect.
type fakeChannel struct {
	mu          sync.Mutex
	events      []Event
	connected   bool
	closed      bool
	callback    func()
	callbackRun bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{connected: true}
}

func (c *fakeChannel) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.connected {
		return errors.New("channel unavailable")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

func (c *fakeChannel) OnDisconnect(fn func()) {
	c.mu.Lock()
	c.callback = fn
	fire := !c.connected && !c.callbackRun
	if fire {
		c.callbackRun = true
	}
	c.mu.Unlock()
	if fire && fn != nil {
		fn()
	}
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeChannel) disconnect() {
	c.mu.Lock()
	c.connected = false
	fn := c.callback
	fire := fn != nil && !c.callbackRun
	if fire {
		c.callbackRun = true
	}
	c.mu.Unlock()
	if fire {
		fn()
	}
}

func (c *fakeChannel) sentEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// scriptedGenerator replays fragments with optional per-fragment gates.
type scriptedGenerator struct {
	fragments []string
	finalErr  error
	// beforeFragment, when set, is called before delivering fragment i and
	// may block to coordinate with the test.
	beforeFragment func(i int)
	ctxCanceled    chan struct{}
	cancelOnce     sync.Once
}

func (g *scriptedGenerator) StreamChat(ctx context.Context, history []llm.Message, onFragment func(string) error) error {
	defer g.noteCancel(ctx)
	for i, frag := range g.fragments {
		if g.beforeFragment != nil {
			g.beforeFragment(i)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := onFragment(frag); err != nil {
			return err
		}
	}
	return g.finalErr
}

func (g *scriptedGenerator) Complete(ctx context.Context, history []llm.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (g *scriptedGenerator) noteCancel(ctx context.Context) {
	if g.ctxCanceled == nil {
		return
	}
	if ctx.Err() != nil {
		g.cancelOnce.Do(func() { close(g.ctxCanceled) })
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.StreamTimeout = 5 * time.Second
	cfg.IdleTimeout = time.Second
	cfg.SaveTimeout = time.Second
	return cfg
}

func userPrompt(content string) domain.Message {
	return domain.Message{ChatID: "chat-1", Role: domain.RoleUser, Content: content}
}

func runSession(t *testing.T, store *fakeStore, gen llm.Generator, ch ClientChannel, cfg *Config) *StreamSession {
	t.Helper()
	s := NewStreamSession(context.Background(), "chat-1", store, gen, ch, cfg, &noopTestLogger{})
	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	return s
}

type noopTestLogger struct{}

func (n *noopTestLogger) Info(msg string, kv ...interface{})  {}
func (n *noopTestLogger) Error(msg string, kv ...interface{}) {}
func (n *noopTestLogger) Debug(msg string, kv ...interface{}) {}
func (n *noopTestLogger) Warn(msg string, kv ...interface{})  {}

func TestStreamSessionCompletesAndCommits(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	gen := &scriptedGenerator{fragments: []string{"He", "llo"}}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateCompleted, s.State())
	assert.True(t, s.ReplyCommitted())

	events := ch.sentEvents()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Content: "He"}, events[0])
	assert.Equal(t, Event{Content: "llo"}, events[1])
	assert.Equal(t, Event{Done: true}, events[2])

	appended := store.appendedMessages()
	require.Len(t, appended, 1)
	assert.Equal(t, domain.RoleAssistant, appended[0].Role)
	assert.Equal(t, "Hello", appended[0].Content)
	assert.Empty(t, store.deleteCalls())
	assert.True(t, ch.isClosed())
}

func TestStreamSessionPreservesFragmentOrder(t *testing.T) {
	fragments := make([]string, 40)
	for i := range fragments {
		fragments[i] = fmt.Sprintf("frag-%02d;", i)
	}
	store := newFakeStore(userPrompt("order test"))
	gen := &scriptedGenerator{fragments: fragments}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateCompleted, s.State())
	events := ch.sentEvents()
	require.Len(t, events, len(fragments)+1)
	var full string
	for i, frag := range fragments {
		assert.Equal(t, frag, events[i].Content)
		full += frag
	}

	appended := store.appendedMessages()
	require.Len(t, appended, 1)
	assert.Equal(t, full, appended[0].Content)
}

func TestStreamSessionClientDisconnectRollsBack(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	ch := newFakeChannel()

	gen := &scriptedGenerator{fragments: []string{"He", "llo"}}
	gen.beforeFragment = func(i int) {
		if i == 1 {
			ch.disconnect()
		}
	}

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateAborted, s.State())
	assert.False(t, s.ReplyCommitted())

	// One content event went out before the disconnect; no done event.
	events := ch.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "He", events[0].Content)

	// The unanswered prompt is gone and no assistant reply was persisted.
	assert.Empty(t, store.appendedMessages())
	assert.Equal(t, []string{domain.RoleUser}, store.deleteCalls())
	assert.Empty(t, store.messages())
}

func TestStreamSessionUpstreamFailure(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	gen := &scriptedGenerator{finalErr: llm.NewUnavailableError("connect", "connection refused", nil)}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateFailed, s.State())

	events := ch.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, string(ErrTypeUnavailable), events[0].Error)

	assert.Empty(t, store.appendedMessages())
	assert.Equal(t, []string{domain.RoleUser}, store.deleteCalls())
}

func TestStreamSessionEmptyHistoryFails(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGenerator{fragments: []string{"unused"}}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateFailed, s.State())
	events := ch.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, string(ErrTypeHistory), events[0].Error)
	assert.Empty(t, store.deleteCalls())
}

func TestStreamSessionHistoryReadErrorSkipsRollback(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	store.readErr = errors.New("database gone")
	gen := &scriptedGenerator{fragments: []string{"unused"}}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateFailed, s.State())
	// With no loaded history there is no known trailing prompt to remove.
	assert.Empty(t, store.deleteCalls())
}

func TestStreamSessionPersistFailure(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	store.appendErr = errors.New("disk full")
	gen := &scriptedGenerator{fragments: []string{"Hello"}}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateFailed, s.State())
	assert.False(t, s.ReplyCommitted())

	events := ch.sentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "Hello", events[0].Content)
	assert.Equal(t, string(ErrTypePersist), events[1].Error)

	// The unanswered prompt is rolled back so the next turn starts clean.
	assert.Equal(t, []string{domain.RoleUser}, store.deleteCalls())
}

func TestStreamSessionCommitIsOneWay(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	gen := &scriptedGenerator{fragments: []string{"done deal"}}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())
	require.Equal(t, StateCompleted, s.State())
	require.True(t, s.ReplyCommitted())

	// A late cancellation after commit must not trigger rollback.
	s.Cancel()
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, store.deleteCalls())
	require.Len(t, store.appendedMessages(), 1)
}

func TestStreamSessionIdleTimeout(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	ch := newFakeChannel()

	// The generator produces nothing and holds its connection open until
	// canceled.
	gen := &scriptedGenerator{
		fragments:   []string{"never delivered"},
		ctxCanceled: make(chan struct{}),
	}
	block := make(chan struct{})
	gen.beforeFragment = func(i int) { <-block }
	defer close(block)

	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond

	s := runSession(t, store, gen, ch, cfg)

	require.Equal(t, StateFailed, s.State())
	events := ch.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, string(ErrTypeTimeout), events[0].Error)
	assert.Equal(t, []string{domain.RoleUser}, store.deleteCalls())
}

func TestStreamSessionCancelPropagatesToGenerator(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	ch := newFakeChannel()

	gen := &scriptedGenerator{
		fragments:   []string{"He", "llo"},
		ctxCanceled: make(chan struct{}),
	}
	gen.beforeFragment = func(i int) {
		if i == 1 {
			ch.disconnect()
		}
	}

	runSession(t, store, gen, ch, testConfig())

	select {
	case <-gen.ctxCanceled:
	case <-time.After(time.Second):
		t.Fatal("generator context was not canceled after disconnect")
	}
}

func TestStreamSessionEmptyReplyCompletesWithoutPersist(t *testing.T) {
	store := newFakeStore(userPrompt("hi"))
	gen := &scriptedGenerator{}
	ch := newFakeChannel()

	s := runSession(t, store, gen, ch, testConfig())

	require.Equal(t, StateCompleted, s.State())
	assert.True(t, s.ReplyCommitted())
	assert.Empty(t, store.appendedMessages())

	events := ch.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, Event{Done: true}, events[0])
}
