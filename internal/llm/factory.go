package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// NewProvider creates a Provider from configuration, wrapped with the
// standard middleware chain:
//
//	caller → rate limit → retry → logging → vendor
//
// Rate limiting sits outside retry so backoff sleeps do not hold tokens,
// and logging sits inside retry so every attempt is recorded.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, log zerolog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderNone:
		return nil, fmt.Errorf("provider %q makes no model calls", cfg.Provider)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	var p Provider = base
	if events != nil {
		p = WithLogging(p, cfg.Provider, events, log)
	}
	p = WithRetry(p, cfg.Retry)
	p = WithRateLimit(p, cfg.RateLimit)
	return p, nil
}
