// Package llm is the generative-call boundary: a single blocking
// request-response against a configured provider. The answer pipeline
// never retries here; timeouts and outages surface as sentinel errors
// the caller degrades on.
package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUnavailable marks a failed generative call (network, auth,
	// provider error). ErrTimeout marks a call abandoned at its
	// deadline. Both trigger the degraded answer path.
	ErrUnavailable = errors.New("llm unavailable")
	ErrTimeout     = errors.New("llm timeout")
)

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

func NewClient(opts Options) (Client, error) {
	switch opts.Provider {
	case ProviderOllama:
		return NewOllamaClient(opts), nil
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}

// classify wraps a provider error with the sentinel the orchestrator
// branches on, keeping the provider detail in the chain.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
