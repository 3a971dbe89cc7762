package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/taxautomation/taxbot/internal/config"
	"github.com/taxautomation/taxbot/pkg/anthropic"
)

// Anthropic adapts pkg/anthropic to the Client interface.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic wraps an Anthropic client with generation settings from config.
func NewAnthropic(client anthropic.Client, cfg config.LLMConfig) *Anthropic {
	return &Anthropic{
		client:      client,
		model:       cfg.Anthropic.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}
}

func (a *Anthropic) Provider() string { return ProviderAnthropic }

func (a *Anthropic) Generate(ctx context.Context, prompt string) (*Response, error) {
	temp := a.temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, &CallFailure{Provider: ProviderAnthropic, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return nil, &CallFailure{Provider: ProviderAnthropic, Err: eris.New("empty response text")}
	}
	return &Response{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
