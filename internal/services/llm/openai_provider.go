// File: internal/services/llm/openai_provider.go
package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider serves OpenAI-compatible endpoints. Selected when the
// configured provider is "openai"; the base URL override lets it point at
// any compatible gateway.
type OpenAIProvider struct {
	config *Config
	client *openai.Client
}

func NewOpenAIProvider(config *Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, history []Message, onFragment func(string) error) error {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    toOpenAIMessages(history),
		Temperature: p.config.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewUnavailableError("stream", "failed to create stream", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return NewUnavailableError("stream", "stream receive error", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if cbErr := onFragment(delta); cbErr != nil {
			return cbErr
		}
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, history []Message) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    toOpenAIMessages(history),
		Temperature: p.config.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewUnavailableError("complete", "failed to create completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProtocolError("complete", "empty completion response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) GetStatus(ctx context.Context) ProviderStatus {
	return ProviderStatus{IsHealthy: true, Provider: "openai", Message: "openai provider configured"}
}

func toOpenAIMessages(history []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
