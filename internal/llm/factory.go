package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/skillprobe/internal/logger"
)

// NewProvider builds the configured provider with the standard middleware:
// caller → retry → event logging → provider. It returns ErrDisabled when
// the provider is "none". sink may be nil.
func NewProvider(ctx context.Context, cfg Config, sink EventSink, log *logger.Logger) (Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s provider: %w", cfg.Provider, err)
	}

	var p Provider = base
	if sink != nil {
		p = WithLogging(p, sink, log)
	}
	return WithTimeout(WithRetry(p, cfg.Retry), cfg.Timeout), nil
}
