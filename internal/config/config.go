package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	States  StatesConfig  `yaml:"states" mapstructure:"states"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Cost    CostConfig    `yaml:"cost" mapstructure:"cost"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider    string          `yaml:"provider" mapstructure:"provider"` // gemini or anthropic
	MaxTokens   int             `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64         `yaml:"temperature" mapstructure:"temperature"`
	RatePerSec  float64         `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Gemini      GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic   AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	TimeoutSeconds  int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerHost     float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	MinContentChars int     `yaml:"min_content_chars" mapstructure:"min_content_chars"`
}

// ExtractConfig configures prompt construction and response classification.
type ExtractConfig struct {
	MaxContentChars  int     `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	ConfidenceHigh   float64 `yaml:"confidence_high" mapstructure:"confidence_high"`
	ConfidenceMedium float64 `yaml:"confidence_medium" mapstructure:"confidence_medium"`
}

// StatesConfig locates the per-state rule files.
type StatesConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Default []string `yaml:"default" mapstructure:"default"`
}

// OutputConfig configures report locations.
type OutputConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	ReportPrefix string `yaml:"report_prefix" mapstructure:"report_prefix"`
	ReasoningLog string `yaml:"reasoning_log" mapstructure:"reasoning_log"`
}

// StoreConfig configures the run audit store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CostConfig holds per-model token pricing overrides (USD per million tokens).
type CostConfig struct {
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the read-only run viewer.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TAXBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credential env vars predate the TAXBOT_ prefix; keep honoring them.
	_ = v.BindEnv("llm.gemini.api_key", "TAXBOT_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.gemini.model", "TAXBOT_LLM_GEMINI_MODEL", "GEMINI_MODEL_NAME")
	_ = v.BindEnv("llm.anthropic.api_key", "TAXBOT_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.rate_per_sec", 0.5)
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.rate_per_host", 2)
	v.SetDefault("fetch.min_content_chars", 100)
	v.SetDefault("extract.max_content_chars", 8000)
	v.SetDefault("extract.confidence_high", 90)
	v.SetDefault("extract.confidence_medium", 70)
	v.SetDefault("states.dir", "state_configs")
	v.SetDefault("states.default", []string{"NY", "CA", "TX", "FL", "IL"})
	v.SetDefault("output.dir", "multi_state_output")
	v.SetDefault("output.report_prefix", "multi_state_tax_summary")
	v.SetDefault("output.reasoning_log", "multi_state_reasoning_log.txt")
	v.SetDefault("store.path", "taxbot.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Last resort for the Gemini credential: a config.env dotenv file in the
	// working directory, the way earlier deployments shipped the key.
	if cfg.LLM.Gemini.APIKey == "" {
		applyDotenv(&cfg, "config.env")
	}

	return &cfg, nil
}

// applyDotenv fills Gemini credential fields from a KEY=VALUE file. Missing
// file or unparseable lines are ignored.
func applyDotenv(cfg *Config, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "GEMINI_API_KEY":
			if cfg.LLM.Gemini.APIKey == "" {
				cfg.LLM.Gemini.APIKey = value
			}
		case "GEMINI_MODEL_NAME":
			if value != "" {
				cfg.LLM.Gemini.Model = value
			}
		}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
