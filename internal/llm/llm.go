// Package llm adapts hosted text-generation APIs to a single completion call.
package llm

import (
	"context"
	"fmt"

	"github.com/ashureev/coachlab/internal/config"
)

// Completer is the remote completion function: one synchronous call that
// returns generated text for an instruction and an input, or the provider's
// error unchanged. Implementations must be safe for concurrent use and must
// not retry.
type Completer interface {
	Complete(ctx context.Context, model, instructions, input string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, model, instructions, input string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, model, instructions, input string) (string, error) {
	return f(ctx, model, instructions, input)
}

// New builds the completer for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case config.ProviderGemini:
		c, err := NewGemini(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
