// File: internal/services/llm/ollama_provider.go
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const ollamaChatEndpoint = "/api/chat"

// scanner buffer cap; a single NDJSON line never comes close, but the
// default 64K token limit has bitten people with long fragments.
const maxLineSize = 1 << 20

// OllamaProvider talks to a local Ollama server. Streaming responses are
// line-delimited JSON, one object per line, terminated by a done:true line.
type OllamaProvider struct {
	config     *Config
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func NewOllamaProvider(config *Config) *OllamaProvider {
	return &OllamaProvider{
		config: config,
		// No client-level timeout: it would cap the whole body read and kill
		// long streams. Deadlines come in through the request context.
		httpClient: &http.Client{},
	}
}

// StreamChat posts the conversation with stream:true and relays each line's
// incremental content through onFragment. The request carries ctx, so
// cancellation tears down the upstream connection mid-read.
func (p *OllamaProvider) StreamChat(ctx context.Context, history []Message, onFragment func(string) error) error {
	resp, err := p.send(ctx, history, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return NewProtocolError("stream", "unparseable fragment line", err)
		}

		// Lines without incremental content are valid; skip, don't fail.
		if chunk.Message.Content != "" {
			if cbErr := onFragment(chunk.Message.Content); cbErr != nil {
				return cbErr
			}
		}

		if chunk.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewUnavailableError("stream", "stream read failed", err)
	}
	return nil
}

// Complete posts the conversation with stream:false and returns the whole
// reply. Used for title generation.
func (p *OllamaProvider) Complete(ctx context.Context, history []Message) (string, error) {
	resp, err := p.send(ctx, history, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewUnavailableError("complete", "read response", err)
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", NewProtocolError("complete", "unparseable response", err)
	}

	return out.Message.Content, nil
}

func (p *OllamaProvider) send(ctx context.Context, history []Message, stream bool) (*http.Response, error) {
	payload := ollamaChatRequest{
		Model:    p.config.Model,
		Messages: history,
		Stream:   stream,
	}
	if p.config.Temperature > 0 {
		payload.Options = &ollamaOptions{Temperature: p.config.Temperature}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, NewProtocolError("request", "marshal request", err)
	}

	url := p.config.OllamaBaseURL + ollamaChatEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadJSON))
	if err != nil {
		return nil, NewUnavailableError("request", "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewUnavailableError("connect", "ollama request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, NewUnavailableError("connect",
			fmt.Sprintf("ollama error: status %d, body: %s", resp.StatusCode, string(raw)), nil)
	}

	return resp, nil
}

func (p *OllamaProvider) GetStatus(ctx context.Context) ProviderStatus {
	return ProviderStatus{IsHealthy: true, Provider: "ollama", Message: "ollama provider configured"}
}
