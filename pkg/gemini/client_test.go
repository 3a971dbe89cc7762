package gemini

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestNewClient_DefaultModel(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", c.Model())
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	c, err := NewClient(context.Background(), "test-key",
		WithModel("gemini-2.5-pro"),
		WithMaxOutputTokens(1024),
		WithTemperature(0.2),
		WithHTTPClient(hc),
	)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", c.Model())

	sc, ok := c.(*sdkClient)
	require.True(t, ok)
	assert.Equal(t, int32(1024), sc.maxOutputTokens)
	require.NotNil(t, sc.temperature)
	assert.InDelta(t, 0.2, float64(*sc.temperature), 1e-6)
	assert.Same(t, hc, sc.httpClient)
}

func TestWithModel_EmptyKeepsDefault(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key", WithModel(""))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", c.Model())
}
