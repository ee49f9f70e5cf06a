// Package llm provides the backend gateway over generative-text providers.
package llm

import (
	"context"

	"github.com/leanflow/agentengine/internal/domain"
)

// Completion is the raw text a provider produced plus its provenance.
type Completion struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Backend is the single call the execution engine makes.
type Backend interface {
	// Invoke sends promptText to one configured provider and returns its text.
	Invoke(ctx context.Context, agentType domain.AgentType, promptText string) (*Completion, error)
}

// Provider hides one vendor's request and response envelopes.
type Provider interface {
	ID() string
	Complete(ctx context.Context, promptText string) (*Completion, error)
}

// Selector chooses a provider id among the configured ones.
type Selector interface {
	SelectProvider(ctx context.Context, agentType domain.AgentType, configured []string) (string, error)
}

// Ensure implementations satisfy their interfaces.
var (
	_ Backend  = (*Gateway)(nil)
	_ Provider = (*AnthropicClient)(nil)
	_ Provider = (*OpenAIClient)(nil)
	_ Provider = (*MockProvider)(nil)
)
