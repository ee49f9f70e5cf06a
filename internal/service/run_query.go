package service

import (
	"context"
	"fmt"

	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/fingerprint"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// GetRun returns a run or domain.ErrRunNotFound.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return run, nil
}

// ListSessionRuns lists a session's runs newest first. agentType may be empty.
func (s *Service) ListSessionRuns(ctx context.Context, sessionID string, agentType domain.AgentType, limit int) ([]domain.Run, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidRequest)
	}
	if agentType != "" && !agentType.Valid() {
		return nil, fmt.Errorf("%w: unknown agent_type %q", domain.ErrInvalidRequest, agentType)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.store.ListRuns(ctx, domain.RunFilter{SessionID: sessionID, AgentType: agentType, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRunEvents returns the event trail of a run in order.
func (s *Service) GetRunEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	events, err := s.store.GetEvents(ctx, runID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run events: %w", err)
	}
	return events, nil
}

// VerifyRun recomputes the fingerprint of a run's stored inputs.
func (s *Service) VerifyRun(ctx context.Context, runID string) (*domain.RunVerification, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	computed, err := fingerprint.HashJSON(run.Inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash stored inputs: %w", err)
	}
	return &domain.RunVerification{
		RunID:        run.RunID,
		StoredHash:   run.InputHash,
		ComputedHash: computed,
		Match:        computed == run.InputHash,
	}, nil
}
