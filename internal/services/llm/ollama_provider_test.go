// File: internal/services/llm/ollama_provider_test.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaConfig(baseURL string) *Config {
	cfg := DefaultConfig()
	cfg.OllamaBaseURL = baseURL
	return cfg
}

func TestOllamaStreamChat(t *testing.T) {
	var gotReq ollamaChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"He"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"llo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL))

	var fragments []string
	err := provider.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(frag string) error {
			fragments = append(fragments, frag)
			return nil
		})

	require.NoError(t, err)
	// Lines without content are skipped, not surfaced as empty fragments.
	assert.Equal(t, []string{"He", "llo"}, fragments)

	assert.True(t, gotReq.Stream)
	assert.Equal(t, "llama2:latest", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestOllamaStreamChatProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"ok"},"done":false}`)
		fmt.Fprintln(w, `this is not json`)
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL))

	var fragments []string
	err := provider.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(frag string) error {
			fragments = append(fragments, frag)
			return nil
		})

	require.Error(t, err)
	assert.Equal(t, ErrTypeProtocol, ErrType(err))
	assert.Equal(t, []string{"ok"}, fragments)
}

func TestOllamaStreamChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL))

	err := provider.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(string) error { return nil })

	require.Error(t, err)
	assert.Equal(t, ErrTypeUnavailable, ErrType(err))
}

func TestOllamaStreamChatConnectionRefused(t *testing.T) {
	provider := NewOllamaProvider(ollamaConfig("http://127.0.0.1:1"))

	err := provider.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(string) error { return nil })

	require.Error(t, err)
	assert.Equal(t, ErrTypeUnavailable, ErrType(err))
}

func TestOllamaStreamChatCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"message":{"content":"first"},"done":false}`)
		flusher.Flush()
		// Hold the stream open; the client must abort mid-read.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- provider.StreamChat(ctx,
			[]Message{{Role: "user", Content: "hi"}},
			func(frag string) error {
				if frag == "first" {
					cancel()
				}
				return nil
			})
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not abort after cancellation")
	}
}

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "Postgres vs MySQL Indexing"},
			Done:    true,
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL))

	reply, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Postgres vs MySQL Indexing", reply)
}

func TestNewGeneratorValidation(t *testing.T) {
	_, err := NewGenerator(&Config{Provider: "ollama", Model: "m", Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, ErrTypeConfig, ErrType(err))

	gen, err := NewGenerator(nil)
	require.NoError(t, err)
	_, ok := gen.(*OllamaProvider)
	assert.True(t, ok)

	gen, err = NewGenerator(&Config{Provider: "openai", OpenAIKey: "k", Model: "m", Timeout: time.Second})
	require.NoError(t, err)
	_, ok = gen.(*OpenAIProvider)
	assert.True(t, ok)
}
