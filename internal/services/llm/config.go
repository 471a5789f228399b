// File: internal/services/llm/config.go
package llm

import (
	"fmt"
	"time"
)

type Config struct {
	// Provider selection: "ollama" or "openai".
	Provider string

	// Ollama
	OllamaBaseURL string

	// OpenAI-compatible endpoint
	OpenAIBaseURL string
	OpenAIKey     string

	// Model used for both streaming replies and title completions.
	Model string

	// Timeout bounds a single upstream call end to end.
	Timeout time.Duration

	Temperature float32
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "ollama":
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("ollama_base_url is required")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("openai_key is required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Provider:      "ollama",
		OllamaBaseURL: "http://localhost:11434",
		Model:         "llama2:latest",
		Timeout:       120 * time.Second,
		Temperature:   0.7,
	}
}
