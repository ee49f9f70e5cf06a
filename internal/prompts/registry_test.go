package prompts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/domain"
)

func TestDefaultRegistryCoversAllAgentTypes(t *testing.T) {
	for _, agentType := range domain.AgentTypes {
		build, ok := Get(agentType)
		require.True(t, ok, "missing builder for %s", agentType)

		prompt, err := build(json.RawMessage(`{"observations":[{"id":"obs-1"}]}`))
		require.NoError(t, err)
		assert.Contains(t, prompt, "agent_type: "+string(agentType))
		assert.Contains(t, prompt, `"obs-1"`)
	}
}

func TestBuilderRejectsInvalidInputs(t *testing.T) {
	_, err := DefaultRegistry.Build(domain.AgentTypeDesign, json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	build := func(json.RawMessage) (string, error) { return "p", nil }

	require.NoError(t, r.Register(domain.AgentTypeSolutions, build))
	assert.Error(t, r.Register(domain.AgentTypeSolutions, build), "duplicate")
	assert.Error(t, r.Register("unknown", build))
	assert.Error(t, r.Register(domain.AgentTypeDesign, nil))

	got, err := r.Build(domain.AgentTypeSolutions, nil)
	require.NoError(t, err)
	assert.Equal(t, "p", got)

	_, err = r.Build(domain.AgentTypeDesign, nil)
	assert.Error(t, err)
}
