package llm

import (
	"context"

	"github.com/taxautomation/taxbot/pkg/gemini"
)

// Gemini adapts pkg/gemini to the Client interface.
type Gemini struct {
	client gemini.Client
}

// NewGemini wraps an already-configured Gemini client.
func NewGemini(client gemini.Client) *Gemini {
	return &Gemini{client: client}
}

func (g *Gemini) Provider() string { return ProviderGemini }

func (g *Gemini) Generate(ctx context.Context, prompt string) (*Response, error) {
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{Prompt: prompt})
	if err != nil {
		return nil, &CallFailure{Provider: ProviderGemini, Err: err}
	}
	return &Response{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
