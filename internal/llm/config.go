package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config selects and configures the grading model.
type Config struct {
	Provider string

	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Retry     RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, any OpenAI-compatible endpoint
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// RetryConfig controls exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig has no provider: grading falls back to keyword overlap
// until one is configured.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderNone,
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv overlays SKILLPROBE_* variables on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "SKILLPROBE_LLM_PROVIDER")
	setString(&cfg.Anthropic.APIKey, "SKILLPROBE_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "SKILLPROBE_ANTHROPIC_MODEL")
	setString(&cfg.Anthropic.BaseURL, "SKILLPROBE_ANTHROPIC_BASE_URL")
	setString(&cfg.OpenAI.APIKey, "SKILLPROBE_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "SKILLPROBE_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "SKILLPROBE_OPENAI_BASE_URL")
	setString(&cfg.Gemini.APIKey, "SKILLPROBE_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "SKILLPROBE_GEMINI_MODEL")

	if v := os.Getenv("SKILLPROBE_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig picks the first provider whose conventional API key
// variable is set (Anthropic, then OpenAI, then Gemini).
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		return cfg, false
	}
	return cfg, true
}

// Enabled reports whether a real or mock provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	var key, env string
	switch c.Provider {
	case "", ProviderNone, ProviderMock:
		return nil
	case ProviderAnthropic:
		key, env = c.Anthropic.APIKey, "SKILLPROBE_ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		key, env = c.OpenAI.APIKey, "SKILLPROBE_OPENAI_API_KEY"
	case ProviderGemini:
		key, env = c.Gemini.APIKey, "SKILLPROBE_GEMINI_API_KEY"
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
