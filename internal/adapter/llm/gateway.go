package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leanflow/agentengine/internal/domain"
)

// Gateway routes each invocation to one configured provider. It never
// retries; failures propagate to the caller.
type Gateway struct {
	providers []Provider // preference order, primary first
	selector  Selector
	logger    *slog.Logger
}

// NewGateway creates a gateway over providers listed in preference order.
// selector may be nil, in which case the first provider always serves.
func NewGateway(providers []Provider, selector Selector, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		providers: providers,
		selector:  selector,
		logger:    logger,
	}
}

// Configured returns the ids of the configured providers in preference order.
func (g *Gateway) Configured() []string {
	ids := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		ids = append(ids, p.ID())
	}
	return ids
}

// Invoke sends promptText to the selected provider.
func (g *Gateway) Invoke(ctx context.Context, agentType domain.AgentType, promptText string) (*Completion, error) {
	provider, err := g.selectProvider(ctx, agentType)
	if err != nil {
		return nil, err
	}

	completion, err := provider.Complete(ctx, promptText)
	if err != nil {
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			return nil, err
		}
		return nil, &BackendError{Provider: provider.ID(), Cause: err}
	}
	return completion, nil
}

func (g *Gateway) selectProvider(ctx context.Context, agentType domain.AgentType) (Provider, error) {
	if len(g.providers) == 0 {
		return nil, &ConfigurationError{Reason: "no backend provider credentials are configured"}
	}
	if g.selector == nil || len(g.providers) == 1 {
		return g.providers[0], nil
	}

	id, err := g.selector.SelectProvider(ctx, agentType, g.Configured())
	if err != nil {
		g.logger.Warn("provider selection failed, using primary", "agent_type", agentType, "err", err)
		return g.providers[0], nil
	}
	for _, p := range g.providers {
		if p.ID() == id {
			return p, nil
		}
	}
	if id != "" {
		g.logger.Warn("selected provider is not configured, using primary", "agent_type", agentType, "provider", id)
	}
	return g.providers[0], nil
}
