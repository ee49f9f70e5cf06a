// Package prompts maps agent types to prompt builders.
package prompts

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/leanflow/agentengine/internal/domain"
)

// BuildFunc turns run inputs into the prompt text sent to the backend.
type BuildFunc func(inputs json.RawMessage) (string, error)

// Registry stores prompt builders keyed by agent type.
type Registry struct {
	mu       sync.RWMutex
	builders map[domain.AgentType]BuildFunc
}

// DefaultRegistry holds the built-in builders used by the HTTP and RPC transports.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty prompt builder registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.AgentType]BuildFunc),
	}
}

// Register adds a builder for an agent type.
func (r *Registry) Register(agentType domain.AgentType, build BuildFunc) error {
	if !agentType.Valid() {
		return fmt.Errorf("unknown agent type %q", agentType)
	}
	if build == nil {
		return fmt.Errorf("builder is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[agentType]; exists {
		return fmt.Errorf("builder already registered for %s", agentType)
	}
	r.builders[agentType] = build
	return nil
}

// Get returns the builder for the agent type.
func (r *Registry) Get(agentType domain.AgentType) (BuildFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	build, ok := r.builders[agentType]
	return build, ok
}

// Build runs the builder for the agent type.
func (r *Registry) Build(agentType domain.AgentType, inputs json.RawMessage) (string, error) {
	build, ok := r.Get(agentType)
	if !ok {
		return "", fmt.Errorf("no prompt builder registered for %s", agentType)
	}
	return build(inputs)
}

// Register adds a builder to the default registry.
func Register(agentType domain.AgentType, build BuildFunc) error {
	return DefaultRegistry.Register(agentType, build)
}

// MustRegister adds a builder to the default registry or panics.
func MustRegister(agentType domain.AgentType, build BuildFunc) {
	if err := Register(agentType, build); err != nil {
		panic(err)
	}
}

// Get returns a builder from the default registry.
func Get(agentType domain.AgentType) (BuildFunc, bool) {
	return DefaultRegistry.Get(agentType)
}
