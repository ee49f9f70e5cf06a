package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/config"
	"github.com/leanflow/agentengine/internal/domain"
)

type fakeProvider struct {
	id    string
	calls int
	err   error
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Complete(ctx context.Context, promptText string) (*Completion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Text: promptText, Model: f.id + "-model", Provider: f.id}, nil
}

type fixedSelector struct {
	id  string
	err error
}

func (s fixedSelector) SelectProvider(context.Context, domain.AgentType, []string) (string, error) {
	return s.id, s.err
}

func TestGatewayNoProviders(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	_, err := g.Invoke(context.Background(), domain.AgentTypeSynthesis, "p")

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestGatewayPrefersPrimaryWithoutSelector(t *testing.T) {
	primary := &fakeProvider{id: ProviderAnthropic}
	secondary := &fakeProvider{id: ProviderOpenAI}
	g := NewGateway([]Provider{primary, secondary}, nil, nil)

	got, err := g.Invoke(context.Background(), domain.AgentTypeSynthesis, "p")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, got.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestGatewayUsesSelector(t *testing.T) {
	primary := &fakeProvider{id: ProviderAnthropic}
	secondary := &fakeProvider{id: ProviderOpenAI}
	g := NewGateway([]Provider{primary, secondary}, fixedSelector{id: ProviderOpenAI}, nil)

	got, err := g.Invoke(context.Background(), domain.AgentTypeDesign, "p")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, got.Provider)
}

func TestGatewayFallsBackOnBadSelection(t *testing.T) {
	primary := &fakeProvider{id: ProviderAnthropic}
	secondary := &fakeProvider{id: ProviderOpenAI}

	for _, sel := range []Selector{
		fixedSelector{id: "unknown"},
		fixedSelector{err: errors.New("boom")},
		fixedSelector{},
	} {
		g := NewGateway([]Provider{primary, secondary}, sel, nil)
		got, err := g.Invoke(context.Background(), domain.AgentTypeDesign, "p")
		require.NoError(t, err)
		assert.Equal(t, ProviderAnthropic, got.Provider)
	}
}

func TestGatewayWrapsPlainErrors(t *testing.T) {
	g := NewGateway([]Provider{&fakeProvider{id: "x", err: errors.New("kaput")}}, nil, nil)
	_, err := g.Invoke(context.Background(), domain.AgentTypeSynthesis, "p")

	var backendErr *BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "x", backendErr.Provider)
	assert.Contains(t, err.Error(), "kaput")
}

func TestNewGatewayFromConfig(t *testing.T) {
	g := NewGatewayFromConfig(&config.Config{}, nil, nil)
	assert.Empty(t, g.Configured())

	g = NewGatewayFromConfig(&config.Config{
		OpenAI:    config.ProviderConfig{APIKey: "o"},
		Anthropic: config.ProviderConfig{APIKey: "a"},
	}, nil, nil)
	assert.Equal(t, []string{ProviderAnthropic, ProviderOpenAI}, g.Configured())

	g = NewGatewayFromConfig(&config.Config{Mode: config.ModeMock}, nil, nil)
	assert.Equal(t, []string{ProviderMock}, g.Configured())
}

func TestMockProviderRespondsPerAgentType(t *testing.T) {
	m := NewMockProvider()
	got, err := m.Complete(context.Background(), "instructions\nagent_type: sequencing\n{}")
	require.NoError(t, err)
	assert.Contains(t, got.Text, `"waves"`)
	assert.Equal(t, ProviderMock, got.Provider)
}
