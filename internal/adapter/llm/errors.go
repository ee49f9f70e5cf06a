package llm

import (
	"context"
	"errors"
	"fmt"
)

// ConfigurationError means no usable provider is configured.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// BackendError describes a failed provider call.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend error (%s, status %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("backend error (%s): %s", e.Provider, msg)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// Timeout reports whether the call was cut off by its deadline.
func (e *BackendError) Timeout() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}

func transportError(provider string, err error) *BackendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Provider: provider, Message: "request timed out", Cause: err}
	}
	return &BackendError{Provider: provider, Message: fmt.Sprintf("failed to send request: %v", err), Cause: err}
}
