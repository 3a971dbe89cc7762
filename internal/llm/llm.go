// Package llm presents a provider-neutral text generation interface to the
// extraction pipeline, with adapters for Gemini and Anthropic.
package llm

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/taxautomation/taxbot/internal/config"
	"github.com/taxautomation/taxbot/pkg/anthropic"
	"github.com/taxautomation/taxbot/pkg/gemini"
)

// Provider names accepted in config.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Response is a provider-neutral generation result.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Client generates an analysis for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
	Provider() string
}

// CallFailure reports a failed generation call against a provider. The
// pipeline records it against the state and moves on.
type CallFailure struct {
	Provider string
	Err      error
}

func (f *CallFailure) Error() string {
	return fmt.Sprintf("llm call to %s failed: %v", f.Provider, f.Err)
}

func (f *CallFailure) Unwrap() error { return f.Err }

// New builds the configured provider's client. A missing API key is the one
// error callers should treat as fatal before a run starts.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		if cfg.Gemini.APIKey == "" {
			return nil, eris.New("llm: gemini api key is not set (TAXBOT_LLM_GEMINI_API_KEY or GEMINI_API_KEY)")
		}
		inner, err := gemini.NewClient(ctx, cfg.Gemini.APIKey,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithMaxOutputTokens(cfg.MaxTokens),
			gemini.WithTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, eris.Wrap(err, "llm: create gemini client")
		}
		return NewGemini(inner), nil
	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, eris.New("llm: anthropic api key is not set (TAXBOT_LLM_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY)")
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.APIKey), cfg), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
