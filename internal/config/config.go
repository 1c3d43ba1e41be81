package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service consumes. Credentials are
// supplied externally; the core never prompts for or stores them itself.
type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Storage    StorageConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Completion: completion,
		Storage:    loadStorageConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// CompletionConfig describes the hosted chat-completion endpoint.
type CompletionConfig struct {
	APIKey    string
	APIURL    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Enabled reports whether a credential was supplied.
func (c CompletionConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadCompletionConfig() (CompletionConfig, error) {
	maxTokens := 1000
	if override, err := parseOptionalIntEnv("GROQ_MAX_TOKENS"); err != nil {
		return CompletionConfig{}, err
	} else if override != nil {
		maxTokens = *override
	}

	timeout := 30 * time.Second
	if override, err := parseOptionalIntEnv("GROQ_TIMEOUT"); err != nil {
		return CompletionConfig{}, err
	} else if override != nil {
		timeout = time.Duration(*override) * time.Second
	}

	return CompletionConfig{
		APIKey:    strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		APIURL:    getEnvOrDefault("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		Model:     getEnvOrDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		MaxTokens: maxTokens,
		Timeout:   timeout,
	}, nil
}

// StorageConfig describes the sqlite database location.
type StorageConfig struct {
	Path string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Path: getEnvOrDefault("MNEMOSYNE_DB", "mnemosyne.db"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
