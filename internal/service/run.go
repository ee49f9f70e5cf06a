package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/leanflow/agentengine/internal/adapter/llm"
	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/fingerprint"
	"github.com/leanflow/agentengine/internal/metrics"
	"github.com/leanflow/agentengine/internal/pipeline"
	"github.com/leanflow/agentengine/internal/prompts"
)

// Failure codes recorded on run_failed events.
const (
	FailureConfiguration  = "configuration_error"
	FailureBackend        = "backend_error"
	FailureBackendTimeout = "backend_timeout"
	FailureParse          = "parse_error"
	FailureSchema         = "schema_error"
	FailurePrompt         = "prompt_error"
	FailureStale          = "stale_run"
)

// RunAgent executes one agent request end to end.
//
// Invalid requests and store failures before the backend is called are
// returned as errors. Everything that goes wrong during execution is
// recorded as a failed run and reported through the result.
func (s *Service) RunAgent(ctx context.Context, req domain.RunRequest, build prompts.BuildFunc) (*domain.RunResult, error) {
	if err := validateRequest(req, build); err != nil {
		return nil, err
	}

	inputHash, err := fingerprint.HashJSON(req.Inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: inputs: %v", domain.ErrInvalidRequest, err)
	}

	if req.ForceRerun {
		return s.execute(ctx, req, inputHash, build)
	}

	cached, err := s.lookupCache(ctx, req, inputHash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	if !s.dedupeInflight {
		return s.execute(ctx, req, inputHash, build)
	}

	// The shared execution outlives any single caller; each caller stops
	// waiting when its own ctx ends.
	key := req.SessionID + "\x00" + string(req.AgentType) + "\x00" + inputHash
	leader := false
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		leader = true
		return s.execute(context.WithoutCancel(ctx), req, inputHash, build)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for run: %w", ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	result := res.Val.(*domain.RunResult)
	if leader || !result.Success {
		return result, nil
	}

	shared := *result
	shared.Cached = true
	s.metrics.ObserveRun(req.AgentType, metrics.OutcomeCached)
	return &shared, nil
}

func validateRequest(req domain.RunRequest, build prompts.BuildFunc) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return fmt.Errorf("%w: session_id is required", domain.ErrInvalidRequest)
	}
	if !req.AgentType.Valid() {
		return fmt.Errorf("%w: unknown agent_type %q", domain.ErrInvalidRequest, req.AgentType)
	}
	trimmed := bytes.TrimSpace(req.Inputs)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("%w: inputs must be a JSON object", domain.ErrInvalidRequest)
	}
	if build == nil {
		return fmt.Errorf("%w: prompt builder is required", domain.ErrInvalidRequest)
	}
	return nil
}

// lookupCache serves the latest succeeded run for the idempotency key.
func (s *Service) lookupCache(ctx context.Context, req domain.RunRequest, inputHash string) (*domain.RunResult, error) {
	run, err := s.store.FindLatestSucceededRun(ctx, req.SessionID, req.AgentType, inputHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cached run: %w", err)
	}
	if run == nil {
		return nil, nil
	}

	s.trace(ctx, run.RunID, domain.EventTypeCacheHit, domain.CacheHitPayload{CallerID: req.CallerID})
	s.metrics.ObserveRun(req.AgentType, metrics.OutcomeCached)
	s.notify(ctx, run, true)
	s.logger.Info("served cached run", "run_id", run.RunID, "session_id", req.SessionID, "agent_type", req.AgentType)

	return &domain.RunResult{
		Success:  true,
		Data:     run.Outputs,
		RunID:    run.RunID,
		Cached:   true,
		Model:    run.Model,
		Provider: run.Provider,
	}, nil
}

// execute creates a fresh run and drives it to a terminal state.
func (s *Service) execute(ctx context.Context, req domain.RunRequest, inputHash string, build prompts.BuildFunc) (*domain.RunResult, error) {
	run := &domain.Run{
		RunID:     "run_" + uuid.New().String()[:8],
		SessionID: req.SessionID,
		AgentType: req.AgentType,
		InputHash: inputHash,
		Inputs:    req.Inputs,
		CreatedBy: req.CallerID,
		Status:    domain.RunStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.trace(ctx, run.RunID, domain.EventTypeRunQueued, domain.RunQueuedPayload{
		SessionID:  run.SessionID,
		AgentType:  run.AgentType,
		InputHash:  run.InputHash,
		CreatedBy:  run.CreatedBy,
		ForceRerun: req.ForceRerun,
	})
	s.notify(ctx, run, false)

	startedAt := time.Now().UTC()
	updated, err := s.store.MarkRunRunning(ctx, run.RunID, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start run %s: %w", run.RunID, err)
	}
	if !updated {
		return nil, fmt.Errorf("failed to start run %s: %w", run.RunID, domain.ErrInvalidTransition)
	}
	run.Status = domain.RunStatusRunning
	run.StartedAt = &startedAt
	s.trace(ctx, run.RunID, domain.EventTypeRunStarted, struct{}{})
	s.notify(ctx, run, false)

	promptText, err := build(req.Inputs)
	if err != nil {
		return s.fail(ctx, run, FailurePrompt, fmt.Errorf("failed to build prompt: %w", err), nil), nil
	}

	completion, err := s.callBackend(ctx, run, promptText)
	if err != nil {
		return s.fail(ctx, run, failureCode(err), err, nil), nil
	}

	resolved, err := pipeline.Resolve(completion.Text, run.AgentType)
	if err != nil {
		return s.fail(ctx, run, failureCode(err), err, completion), nil
	}
	if resolved.Repaired {
		s.logger.Debug("backend output needed repair", "run_id", run.RunID)
	}

	return s.succeed(ctx, run, resolved.Value, completion), nil
}

// succeed finalizes a run as succeeded. Finalize writes outlive the caller's
// cancellation so a finished backend call is not lost.
func (s *Service) succeed(ctx context.Context, run *domain.Run, outputs json.RawMessage, completion *llm.Completion) *domain.RunResult {
	ctx = context.WithoutCancel(ctx)
	result := &domain.RunResult{
		Success:  true,
		Data:     outputs,
		RunID:    run.RunID,
		Model:    completion.Model,
		Provider: completion.Provider,
	}

	completedAt := time.Now().UTC()
	updated, err := s.store.CompleteRun(ctx, run.RunID, outputs, completion.Model, completion.Provider, completedAt)
	switch {
	case err != nil:
		s.logger.Error("failed to persist succeeded run", "run_id", run.RunID, "error", err)
		result.Error = fmt.Sprintf("run succeeded but could not be saved: %v", err)
		return result
	case !updated:
		s.logger.Warn("run left running state before completion", "run_id", run.RunID)
		result.Error = fmt.Sprintf("run succeeded but could not be saved: %v", domain.ErrInvalidTransition)
		return result
	}

	run.Status = domain.RunStatusSucceeded
	run.Outputs = outputs
	run.Model = completion.Model
	run.Provider = completion.Provider
	run.CompletedAt = &completedAt
	s.trace(ctx, run.RunID, domain.EventTypeRunSucceeded, domain.RunSucceededPayload{
		Provider: completion.Provider,
		Model:    completion.Model,
	})
	s.metrics.ObserveRun(run.AgentType, metrics.OutcomeSucceeded)
	s.notify(ctx, run, false)
	s.logger.Info("run succeeded", "run_id", run.RunID, "agent_type", run.AgentType, "provider", completion.Provider)
	return result
}

// fail finalizes a run as failed. completion is nil when no backend text was received.
func (s *Service) fail(ctx context.Context, run *domain.Run, code string, cause error, completion *llm.Completion) *domain.RunResult {
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()
	result := &domain.RunResult{
		Success: false,
		Error:   message,
		RunID:   run.RunID,
	}
	if completion != nil {
		result.Model = completion.Model
		result.Provider = completion.Provider
	}

	updated, err := s.store.FailRun(ctx, run.RunID, message, result.Model, result.Provider, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to persist failed run", "run_id", run.RunID, "error", err)
	} else if !updated {
		s.logger.Warn("run already terminal, failure not recorded", "run_id", run.RunID)
	}

	run.Status = domain.RunStatusFailed
	run.Error = message
	s.trace(ctx, run.RunID, domain.EventTypeRunFailed, domain.RunFailedPayload{
		Code:    code,
		Message: message,
	})
	s.metrics.ObserveRun(run.AgentType, metrics.OutcomeFailed)
	s.notify(ctx, run, false)
	s.logger.Warn("run failed", "run_id", run.RunID, "agent_type", run.AgentType, "code", code, "error", message)
	return result
}

func failureCode(err error) string {
	var cfgErr *llm.ConfigurationError
	var backendErr *llm.BackendError
	var parseErr *pipeline.ParseError
	var schemaErr *pipeline.SchemaError
	switch {
	case errors.As(err, &cfgErr):
		return FailureConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return FailureBackendTimeout
	case errors.As(err, &backendErr):
		return FailureBackend
	case errors.As(err, &parseErr):
		return FailureParse
	case errors.As(err, &schemaErr):
		return FailureSchema
	default:
		return FailureBackend
	}
}
