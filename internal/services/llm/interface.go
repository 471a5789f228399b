// File: internal/services/llm/interface.go
package llm

import "context"

// Message is one role/content pair in the conversation sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces assistant text from a conversation history. StreamChat
// delivers the reply as incremental fragments through onFragment, in
// generation order, one at a time; it returns once the upstream signals
// completion, the context is canceled, or onFragment returns an error.
// Cancellation must actively abort the upstream call, not just discard its
// output.
type Generator interface {
	StreamChat(ctx context.Context, history []Message, onFragment func(fragment string) error) error
	Complete(ctx context.Context, history []Message) (string, error)
}

// ProviderStatus represents generator provider health.
type ProviderStatus struct {
	IsHealthy bool
	Provider  string
	Message   string
}
