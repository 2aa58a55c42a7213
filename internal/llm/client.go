package llm

import (
	"context"
	"fmt"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Completer sends one system + user prompt pair to a chat model and returns
// the text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Config struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int64
}

// NewCompleter builds the completer for cfg.Provider.
func NewCompleter(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
