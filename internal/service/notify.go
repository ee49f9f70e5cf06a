package service

import (
	"context"
	"errors"
	"time"

	"github.com/leanflow/agentengine/internal/domain"
)

// Notifier receives run status changes.
type Notifier interface {
	Notify(ctx context.Context, n domain.RunNotification) error
}

// Notifiers fans a notification out to every member.
type Notifiers []Notifier

// Notify delivers to all members and joins their errors.
func (ns Notifiers) Notify(ctx context.Context, n domain.RunNotification) error {
	var errs []error
	for _, notifier := range ns {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) notify(ctx context.Context, run *domain.Run, cached bool) {
	if s.notifier == nil {
		return
	}
	n := domain.RunNotification{
		Type:      "run_status",
		Ts:        time.Now().UnixMilli(),
		SessionID: run.SessionID,
		RunID:     run.RunID,
		AgentType: run.AgentType,
		Status:    run.Status,
		Cached:    cached,
		Error:     run.Error,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to push run notification", "run_id", run.RunID, "status", run.Status, "error", err)
	}
}
