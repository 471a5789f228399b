// File: internal/services/llm/factory.go
package llm

// NewGenerator builds the provider named by config.Provider. Validation
// failures surface as CONFIG errors so callers can distinguish bad
// deployment config from runtime upstream trouble.
func NewGenerator(config *Config) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	switch config.Provider {
	case "openai":
		return NewOpenAIProvider(config), nil
	default:
		return NewOllamaProvider(config), nil
	}
}
