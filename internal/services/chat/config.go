// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

type Config struct {
	// StreamTimeout bounds a whole streaming exchange end to end.
	StreamTimeout time.Duration

	// IdleTimeout is the maximum gap between two upstream fragments before
	// the session fails with a timeout. Tunable, not a fixed contract.
	IdleTimeout time.Duration

	// SaveTimeout bounds the storage writes done during teardown, which run
	// on their own context because the session's may already be canceled.
	SaveTimeout time.Duration

	// TitleMaxLength caps generated chat titles.
	TitleMaxLength int
}

func (c *Config) Validate() error {
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("stream_timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive")
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		StreamTimeout:  120 * time.Second,
		IdleTimeout:    30 * time.Second,
		SaveTimeout:    5 * time.Second,
		TitleMaxLength: 80,
	}
}
