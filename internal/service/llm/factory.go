package llm

import (
	"fmt"
	"log/slog"

	"outpost/internal/config"
	domainllm "outpost/internal/domain/services/llm"
	"outpost/internal/service/llm/providers/anthropic"
	"outpost/internal/service/llm/providers/lorem"
)

// NewProvider builds the configured upstream provider.
// "anthropic" requires an API key; "lorem" streams placeholder text for
// development without credentials.
func NewProvider(cfg *config.Config, logger *slog.Logger) (domainllm.Provider, error) {
	switch cfg.DefaultProvider {
	case "anthropic":
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create anthropic provider: %w", err)
		}
		logger.Info("upstream provider ready", "provider", "anthropic", "model", cfg.ChatModel)
		return provider, nil

	case "lorem":
		logger.Warn("using lorem provider - assistant replies are placeholder text")
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DefaultProvider)
	}
}
