package service

import (
	"context"
	"fmt"
	"time"

	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/metrics"
)

// RunStaleRunReaper fails runs stuck in queued or running, such as those
// orphaned by a crash mid-call. It blocks until ctx is cancelled.
func (s *Service) RunStaleRunReaper(ctx context.Context, interval time.Duration) {
	if s.staleRunAfter <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleRuns(ctx)
		}
	}
}

func (s *Service) sweepStaleRuns(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stale, err := s.store.ListStaleRuns(sweepCtx, time.Now().UTC().Add(-s.staleRunAfter), 100)
	if err != nil {
		s.logger.Warn("stale run sweep failed", "error", err)
		return 0
	}

	reaped := 0
	for i := range stale {
		run := &stale[i]
		message := fmt.Sprintf("run did not finish within %s", s.staleRunAfter)
		updated, err := s.store.FailRun(sweepCtx, run.RunID, message, "", "", time.Now().UTC())
		if err != nil {
			s.logger.Warn("failed to reap stale run", "run_id", run.RunID, "error", err)
			continue
		}
		if !updated {
			continue
		}
		reaped++

		run.Status = domain.RunStatusFailed
		run.Error = message
		s.trace(sweepCtx, run.RunID, domain.EventTypeRunFailed, domain.RunFailedPayload{
			Code:    FailureStale,
			Message: message,
		})
		s.metrics.ObserveRun(run.AgentType, metrics.OutcomeFailed)
		s.notify(sweepCtx, run, false)
	}
	if reaped > 0 {
		s.logger.Info("reaped stale runs", "count", reaped)
	}
	return reaped
}
