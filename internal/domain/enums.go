// Package domain defines the core domain models for the agent engine.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// AgentType is the closed set of task categories the engine executes.
type AgentType string

const (
	AgentTypeSynthesis  AgentType = "synthesis"
	AgentTypeSolutions  AgentType = "solutions"
	AgentTypeSequencing AgentType = "sequencing"
	AgentTypeDesign     AgentType = "design"
	AgentTypeStepDesign AgentType = "step_design"
)

// AgentTypes lists every known agent type in a stable order.
var AgentTypes = []AgentType{
	AgentTypeSynthesis,
	AgentTypeSolutions,
	AgentTypeSequencing,
	AgentTypeDesign,
	AgentTypeStepDesign,
}

// Valid reports whether t is one of the known agent types.
func (t AgentType) Valid() bool {
	for _, known := range AgentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EventType represents the type of a run event.
type EventType string

const (
	EventTypeRunQueued          EventType = "run_queued"
	EventTypeRunStarted         EventType = "run_started"
	EventTypeBackendCallStarted EventType = "backend_call_started"
	EventTypeBackendCallDone    EventType = "backend_call_done"
	EventTypeRunSucceeded       EventType = "run_succeeded"
	EventTypeRunFailed          EventType = "run_failed"
	EventTypeCacheHit           EventType = "cache_hit"
)
