// File: internal/services/chat/channel.go
package chat

// Event is one unit delivered downstream: a content fragment, a terminal
// done marker, or a terminal error. Exactly one event per fragment, no
// batching.
type Event struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClientChannel abstracts the one-way downstream connection a session
// relays into.
//
// Implementations must flip IsConnected the instant a peer close is
// observed, not on the next write attempt, and must invoke the registered
// disconnect callback exactly once. The callback may fire concurrently
// with an in-flight Send.
type ClientChannel interface {
	// Send writes one event. After the channel is closed it returns an
	// error the caller logs and moves on from.
	Send(ev Event) error

	IsConnected() bool

	// OnDisconnect registers a one-shot callback fired when disconnect is
	// detected. Registering after disconnect fires the callback
	// immediately.
	OnDisconnect(fn func())

	// Close terminates the connection. Idempotent.
	Close()
}
