// Package gemini wraps the Google Gemini API behind a narrow text-generation
// interface with the module's own request/response types.
package gemini

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Client performs text generation against the Gemini API.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Model() string
}

// GenerateRequest is our own request type for Generate.
type GenerateRequest struct {
	Prompt string
}

// GenerateResponse is our own response type from Generate.
type GenerateResponse struct {
	Text  string
	Model string
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxOutputTokens caps the response length.
func WithMaxOutputTokens(n int) Option {
	return func(c *sdkClient) {
		c.maxOutputTokens = int32(n)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *sdkClient) {
		temp := float32(t)
		c.temperature = &temp
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.httpClient = hc
	}
}

// sdkClient implements Client using the official google.golang.org/genai SDK.
type sdkClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	temperature     *float32
	httpClient      *http.Client
}

// NewClient creates a Gemini client backed by the SDK.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}

	c := &sdkClient{model: defaultModel}
	for _, o := range opts {
		o(c)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c.client = client

	return c, nil
}

func (c *sdkClient) Model() string { return c.model }

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{}
	if c.maxOutputTokens > 0 {
		cfg.MaxOutputTokens = c.maxOutputTokens
	}
	if c.temperature != nil {
		cfg.Temperature = c.temperature
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &GenerateResponse{
		Text:  resp.Text(),
		Model: c.model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if out.Text == "" {
		return nil, eris.New("gemini: empty response")
	}
	return out, nil
}
