package llm

import (
	"context"
	"strings"

	"github.com/leanflow/agentengine/internal/domain"
)

// ProviderMock is the id of the canned provider used in mock mode.
const ProviderMock = "mock"

// mockResponses are schema-conformant outputs keyed by agent type.
var mockResponses = map[domain.AgentType]string{
	domain.AgentTypeSynthesis:  `{"themes":[{"name":"Handoff delays","description":"Work waits between teams","observation_ids":["obs-1"],"waste_types":["waiting"],"severity":"medium"}]}`,
	domain.AgentTypeSolutions:  `{"solutions":[{"title":"Shared intake queue","description":"One queue for all requests","theme_names":["Handoff delays"],"bucket":"modify","effort":"low","impact":"medium","confidence":0.6}]}`,
	domain.AgentTypeSequencing: `{"waves":[{"name":"Quick wins","order":1,"solution_titles":["Shared intake queue"],"rationale":"Low effort","duration_weeks":2}]}`,
	domain.AgentTypeDesign:     `{"summary":"Single queue","steps":[{"id":"start","name":"Request received","type":"start"},{"id":"triage","name":"Triage","type":"task"},{"id":"end","name":"Done","type":"end"}],"connections":[{"from":"start","to":"triage"},{"from":"triage","to":"end"}]}`,
	domain.AgentTypeStepDesign: `{"step_id":"triage","options":[{"title":"Rule-based triage","description":"Route by request type","expected_impact":"medium","confidence":0.5}]}`,
}

// MockProvider returns canned responses. The agent type is read from a
// marker line "agent_type: <type>" in the prompt; prompts without one get
// the synthesis response.
type MockProvider struct {
	model string
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{model: "mock-small"}
}

// ID returns the provider id.
func (m *MockProvider) ID() string { return ProviderMock }

// Complete returns the canned response for the prompt's agent type.
func (m *MockProvider) Complete(ctx context.Context, promptText string) (*Completion, error) {
	select {
	case <-ctx.Done():
		return nil, transportError(ProviderMock, ctx.Err())
	default:
	}

	agentType := domain.AgentTypeSynthesis
	for _, line := range strings.Split(promptText, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "agent_type:"); ok {
			agentType = domain.AgentType(strings.TrimSpace(rest))
			break
		}
	}
	text, ok := mockResponses[agentType]
	if !ok {
		text = mockResponses[domain.AgentTypeSynthesis]
	}
	return &Completion{Text: "```json\n" + text + "\n```", Model: m.model, Provider: ProviderMock}, nil
}
