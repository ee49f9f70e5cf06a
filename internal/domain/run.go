package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single attempt to execute an agent type against an input.
type Run struct {
	RunID       string          `json:"run_id"`
	SessionID   string          `json:"session_id"`
	AgentType   AgentType       `json:"agent_type"`
	InputHash   string          `json:"input_hash"`
	Inputs      json.RawMessage `json:"inputs"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
	Error       string          `json:"error,omitempty"`
	Model       string          `json:"model,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	Status      RunStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Event represents a lifecycle trace event for a run.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunFilter selects runs for listing. Empty fields match everything.
type RunFilter struct {
	SessionID string
	AgentType AgentType
	Status    RunStatus
	Limit     int
}

// RunVerification reports whether a run's stored input hash still matches
// its stored inputs.
type RunVerification struct {
	RunID        string `json:"run_id"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash"`
	Match        bool   `json:"match"`
}
