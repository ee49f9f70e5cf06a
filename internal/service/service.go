// Package service implements the agent execution engine.
package service

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leanflow/agentengine/internal/adapter/llm"
	"github.com/leanflow/agentengine/internal/config"
	"github.com/leanflow/agentengine/internal/metrics"
	"github.com/leanflow/agentengine/internal/repository"
)

type Service struct {
	store    repository.Store
	backend  llm.Backend
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	backendTimeout time.Duration
	staleRunAfter  time.Duration
	dedupeInflight bool
	inflight       singleflight.Group
}

// New creates the engine. notifier and m may be nil.
func New(store repository.Store, backend llm.Backend, notifier Notifier, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Service{
		store:          store,
		backend:        backend,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
		backendTimeout: cfg.BackendTimeout,
		staleRunAfter:  cfg.StaleRunAfter,
		dedupeInflight: cfg.DedupeInflight,
	}
}
