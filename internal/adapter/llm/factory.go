package llm

import (
	"log/slog"

	"github.com/leanflow/agentengine/internal/config"
)

// NewGatewayFromConfig builds a gateway from the configured providers,
// primary (anthropic) first. In mock mode only the mock provider is used.
func NewGatewayFromConfig(cfg *config.Config, selector Selector, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == config.ModeMock {
		logger.Info("mock mode detected, using mock provider")
		return NewGateway([]Provider{NewMockProvider()}, nil, logger)
	}

	var providers []Provider
	if cfg.Anthropic.Configured() {
		providers = append(providers, NewAnthropicClient(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.BackendTimeout))
	}
	if cfg.OpenAI.Configured() {
		providers = append(providers, NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.BackendTimeout))
	}
	if len(providers) == 0 {
		logger.Warn("no backend provider configured; runs will fail with a configuration error")
	}
	return NewGateway(providers, selector, logger)
}
