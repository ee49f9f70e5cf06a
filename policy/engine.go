package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/leanflow/agentengine/internal/domain"
)

// Engine is the OPA policy engine used for provider routing.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.provider_policy.provider.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.provider_policy.provider"),
		rego.Module("provider_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// SelectProvider evaluates the policy for one invocation and returns the
// chosen provider id. An empty id means the policy made no choice.
func (e *Engine) SelectProvider(ctx context.Context, agentType domain.AgentType, configured []string) (string, error) {
	input := map[string]interface{}{
		"agent_type": string(agentType),
		"configured": configured,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "", nil
	}

	val := results[0].Expressions[0].Value
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("policy returned %T, expected string", val)
	}
	return s, nil
}

// DefaultPolicy prefers the primary provider whenever it is configured.
const DefaultPolicy = `
package provider_policy

default provider = ""

configured[id] {
	id := input.configured[_]
}

provider = "anthropic" {
	configured["anthropic"]
}

provider = "openai" {
	not configured["anthropic"]
	configured["openai"]
}
`
