// Package repository defines the run store interface and its SQLite implementation.
package repository

import (
	"context"
	"time"

	"github.com/leanflow/agentengine/internal/domain"
)

// Store defines the interface for run persistence.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	MarkRunRunning(ctx context.Context, runID string, startedAt time.Time) (bool, error)
	CompleteRun(ctx context.Context, runID string, outputs []byte, model, provider string, completedAt time.Time) (bool, error)
	FailRun(ctx context.Context, runID string, message, model, provider string, completedAt time.Time) (bool, error)
	FindLatestSucceededRun(ctx context.Context, sessionID string, agentType domain.AgentType, inputHash string) (*domain.Run, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
	ListStaleRuns(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Run, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
