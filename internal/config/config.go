// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	Environment string

	// Auth
	AccessTokenKey  string
	RefreshTokenKey string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Upstream generator
	LLMProvider   string // "ollama" (default) or "openai"
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	LLMModel      string

	// Streaming
	StreamTimeout     time.Duration // whole-stream ceiling
	StreamIdleTimeout time.Duration // max gap between two fragments

	// Storage
	DatabasePath string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: env,

		AccessTokenKey:  getEnv("ACCESS_TOKEN_KEY", "dev-access-secret"),
		RefreshTokenKey: getEnv("REFRESH_TOKEN_KEY", "dev-refresh-secret"),
		AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TIME", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TIME", 24*time.Hour),

		LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "llama2:latest"),

		StreamTimeout:     getEnvAsDuration("STREAM_TIMEOUT", 120*time.Second),
		StreamIdleTimeout: getEnvAsDuration("STREAM_IDLE_TIMEOUT", 30*time.Second),

		DatabasePath: getEnv("DATABASE_PATH", "chatrelay.db"),
	}

	// Validation for production environments
	if strings.ToLower(env) == "production" {
		missing := []string{}
		if cfg.AccessTokenKey == "" || cfg.AccessTokenKey == "dev-access-secret" {
			missing = append(missing, "ACCESS_TOKEN_KEY")
		}
		if cfg.RefreshTokenKey == "" || cfg.RefreshTokenKey == "dev-refresh-secret" {
			missing = append(missing, "REFRESH_TOKEN_KEY")
		}
		if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an env var as a duration ("30s", "15m"), with a fallback.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
