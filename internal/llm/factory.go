package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// NewClient builds the provider client selected by the configuration and
// wraps it with rate limiting and response caching as configured.
func NewClient(cfg config.AIConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	var (
		client schemas.LLMClient
		err    error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg, logger)
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(cfg, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(cfg, logger)
	case config.ProviderCustom:
		// Custom endpoints are assumed to speak the chat completions wire
		// format, which local inference servers broadly do.
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("custom provider requires an endpoint")
		}
		client, err = NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		client = withRateLimit(client, cfg.RequestsPerSecond)
	}
	if cfg.Cache.Enabled {
		client = newCachedClient(client, cfg.Cache, logger)
	}
	return client, nil
}
