package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Gemini.Model)
	assert.Equal(t, 0.5, cfg.LLM.RatePerSec)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSeconds)
	assert.Equal(t, int64(2<<20), cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, 8000, cfg.Extract.MaxContentChars)
	assert.Equal(t, float64(90), cfg.Extract.ConfidenceHigh)
	assert.Equal(t, float64(70), cfg.Extract.ConfidenceMedium)
	assert.Equal(t, []string{"NY", "CA", "TX", "FL", "IL"}, cfg.States.Default)
	assert.Equal(t, "state_configs", cfg.States.Dir)
	assert.Equal(t, "multi_state_output", cfg.Output.Dir)
	assert.Equal(t, "taxbot.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TAXBOT_LOG_LEVEL", "debug")
	t.Setenv("TAXBOT_LLM_PROVIDER", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoad_CredentialEnvAliases(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("GEMINI_MODEL_NAME", "gemini-2.5-pro")
	t.Setenv("ANTHROPIC_API_KEY", "anth-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Gemini.Model)
	assert.Equal(t, "anth-key", cfg.LLM.Anthropic.APIKey)
}

func TestLoad_DotenvFallback(t *testing.T) {
	dir := chdirTemp(t)

	dotenv := "# legacy credential file\nGEMINI_API_KEY=key-from-file\nGEMINI_MODEL_NAME=gemini-2.0-flash-lite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.env"), []byte(dotenv), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-from-file", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.LLM.Gemini.Model)
}

func TestLoad_EnvWinsOverDotenv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "key-from-env")

	dotenv := "GEMINI_API_KEY=key-from-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.env"), []byte(dotenv), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.LLM.Gemini.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "llm:\n  provider: anthropic\nextract:\n  confidence_high: 85\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, float64(85), cfg.Extract.ConfidenceHigh)
	// Unset keys keep their defaults.
	assert.Equal(t, float64(70), cfg.Extract.ConfidenceMedium)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

// chdirTemp runs the test from an empty directory so stray config.yaml or
// config.env files cannot leak in.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}
