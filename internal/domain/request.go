package domain

import "encoding/json"

// RunRequest asks the engine to execute an agent type for a session.
type RunRequest struct {
	SessionID  string          `json:"session_id"`
	AgentType  AgentType       `json:"agent_type"`
	Inputs     json.RawMessage `json:"inputs"`
	CallerID   string          `json:"caller_id,omitempty"`
	ForceRerun bool            `json:"force_rerun,omitempty"`
}

// RunResult is what the engine hands back for every request it accepted.
// A failed execution is reported here, not as a Go error.
type RunResult struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	RunID    string          `json:"run_id"`
	Cached   bool            `json:"cached"`
	Model    string          `json:"model,omitempty"`
	Provider string          `json:"provider,omitempty"`
}

// RunQueuedPayload is the payload for run_queued event.
type RunQueuedPayload struct {
	SessionID  string    `json:"session_id"`
	AgentType  AgentType `json:"agent_type"`
	InputHash  string    `json:"input_hash"`
	CreatedBy  string    `json:"created_by,omitempty"`
	ForceRerun bool      `json:"force_rerun,omitempty"`
}

// BackendCallStartedPayload is the payload for backend_call_started event.
type BackendCallStartedPayload struct {
	PromptChars int `json:"prompt_chars"`
}

// BackendCallDonePayload is the payload for backend_call_done event.
type BackendCallDonePayload struct {
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	LatencyMs     int64  `json:"latency_ms"`
	ResponseChars int    `json:"response_chars,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunSucceededPayload is the payload for run_succeeded event.
type RunSucceededPayload struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// RunFailedPayload is the payload for run_failed event.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CacheHitPayload is the payload for cache_hit event.
type CacheHitPayload struct {
	CallerID string `json:"caller_id,omitempty"`
}

// RunNotification is pushed to session subscribers on every status change.
type RunNotification struct {
	Type      string    `json:"type"`
	Ts        int64     `json:"ts"`
	SessionID string    `json:"session_id"`
	RunID     string    `json:"run_id"`
	AgentType AgentType `json:"agent_type"`
	Status    RunStatus `json:"status"`
	Cached    bool      `json:"cached,omitempty"`
	Error     string    `json:"error,omitempty"`
}
