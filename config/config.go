// Package config loads configuration from an optional YAML file with
// environment variable overrides. Every resource cap the answer
// pipeline applies (context budget, document cap, LLM timeout) lives
// here with a documented default rather than as a literal at the call
// site.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaHost    string `yaml:"ollama_host"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

type RetrievalConfig struct {
	// MaxContextChars bounds the assembled context block.
	MaxContextChars int `yaml:"max_context_chars"`
	// MaxPromptChars bounds the composed prompt handed to the model.
	MaxPromptChars int `yaml:"max_prompt_chars"`
	// MaxDocuments bounds how many stored documents a query considers.
	MaxDocuments int `yaml:"max_documents"`
	// LLMTimeoutSecs bounds the single generative call, in seconds.
	LLMTimeoutSecs int `yaml:"llm_timeout_secs"`
}

// LLMTimeout is LLMTimeoutSecs as a duration.
func (r RetrievalConfig) LLMTimeout() time.Duration {
	return time.Duration(r.LLMTimeoutSecs) * time.Second
}

type Config struct {
	Port           string          `yaml:"port"`
	PostgresDSN    string          `yaml:"postgres_dsn"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes"`
	LLM            LLMConfig       `yaml:"llm"`
	Retrieval      RetrievalConfig `yaml:"retrieval"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		PostgresDSN:    "postgres://localhost:5432/policy-qa?sslmode=disable",
		MaxUploadBytes: 26214400, // 25MB
		LLM: LLMConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			OllamaHost: "http://localhost:11434",
		},
		Retrieval: RetrievalConfig{
			MaxContextChars: 40000,
			MaxPromptChars:  50000,
			MaxDocuments:    8,
			LLMTimeoutSecs:  30,
		},
	}
}

// Load reads config.yaml from path (skipped when absent), then applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.PostgresDSN = envOr("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.LLM.Provider = envOr("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = envOr("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.OllamaHost = envOr("OLLAMA_HOST", cfg.LLM.OllamaHost)
	cfg.LLM.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.LLM.OpenAIBaseURL)

	cfg.Retrieval.MaxContextChars = envInt("MAX_CONTEXT_CHARS", cfg.Retrieval.MaxContextChars)
	cfg.Retrieval.MaxPromptChars = envInt("MAX_PROMPT_CHARS", cfg.Retrieval.MaxPromptChars)
	cfg.Retrieval.MaxDocuments = envInt("MAX_DOCUMENTS", cfg.Retrieval.MaxDocuments)
	cfg.Retrieval.LLMTimeoutSecs = envInt("LLM_TIMEOUT_SECS", cfg.Retrieval.LLMTimeoutSecs)

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Retrieval.MaxContextChars <= 0 {
		return fmt.Errorf("max_context_chars must be positive")
	}
	if c.Retrieval.MaxPromptChars < c.Retrieval.MaxContextChars {
		return fmt.Errorf("max_prompt_chars must be at least max_context_chars")
	}
	if c.Retrieval.MaxDocuments <= 0 {
		return fmt.Errorf("max_documents must be positive")
	}
	if c.Retrieval.LLMTimeoutSecs <= 0 {
		return fmt.Errorf("llm_timeout_secs must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
