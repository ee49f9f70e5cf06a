package service

import (
	"context"
	"errors"
	"time"

	"github.com/leanflow/agentengine/internal/adapter/llm"
	"github.com/leanflow/agentengine/internal/domain"
)

// callBackend invokes the gateway under the configured timeout and traces
// the call on the run.
func (s *Service) callBackend(ctx context.Context, run *domain.Run, promptText string) (*llm.Completion, error) {
	s.trace(ctx, run.RunID, domain.EventTypeBackendCallStarted, domain.BackendCallStartedPayload{
		PromptChars: len(promptText),
	})

	callCtx := ctx
	if s.backendTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.backendTimeout)
		defer cancel()
	}

	startTime := time.Now()
	completion, err := s.backend.Invoke(callCtx, run.AgentType, promptText)
	latency := time.Since(startTime)
	// The call outcome belongs on the trail even if the caller gave up.
	traceCtx := context.WithoutCancel(ctx)

	if err != nil {
		provider := ""
		var backendErr *llm.BackendError
		if errors.As(err, &backendErr) {
			provider = backendErr.Provider
		}
		var cfgErr *llm.ConfigurationError
		if !errors.As(err, &cfgErr) {
			s.metrics.ObserveBackend(provider, latency)
		}
		s.trace(traceCtx, run.RunID, domain.EventTypeBackendCallDone, domain.BackendCallDonePayload{
			Provider:  provider,
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		})
		return nil, err
	}

	s.metrics.ObserveBackend(completion.Provider, latency)
	s.trace(traceCtx, run.RunID, domain.EventTypeBackendCallDone, domain.BackendCallDonePayload{
		Provider:      completion.Provider,
		Model:         completion.Model,
		LatencyMs:     latency.Milliseconds(),
		ResponseChars: len(completion.Text),
	})
	return completion, nil
}
