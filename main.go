package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leanflow/agentengine/internal/adapter/ingress"
	"github.com/leanflow/agentengine/internal/adapter/llm"
	"github.com/leanflow/agentengine/internal/config"
	"github.com/leanflow/agentengine/internal/logging"
	"github.com/leanflow/agentengine/internal/metrics"
	"github.com/leanflow/agentengine/internal/prompts"
	"github.com/leanflow/agentengine/internal/repository"
	"github.com/leanflow/agentengine/internal/service"
	httptransport "github.com/leanflow/agentengine/internal/transport/http"
	"github.com/leanflow/agentengine/internal/transport/rpc"
	"github.com/leanflow/agentengine/internal/transport/ws"
	"github.com/leanflow/agentengine/policy"
)

func main() {
	if err := run(); err != nil {
		slog.Error("agent engine exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, false)
	slog.SetDefault(logger)

	logger.Info("starting agent engine",
		"http_port", cfg.HTTPPort,
		"rpc_port", cfg.RPCPort,
		"database", cfg.DatabaseURL,
		"mode", cfg.Mode,
		"backend_timeout", cfg.BackendTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer db.Close()

	// Provider routing policy
	policySource := policy.DefaultPolicy
	if cfg.ProviderPolicy != "" {
		policySource = cfg.ProviderPolicy
	}
	policyEngine, err := policy.NewEngine(ctx, policySource)
	if err != nil {
		return fmt.Errorf("initialize provider policy: %w", err)
	}
	gateway := llm.NewGatewayFromConfig(cfg, policyEngine, logger)
	logger.Info("backend providers", "configured", gateway.Configured())

	// Notifications
	hub := ws.NewHub(logger)
	notifiers := service.Notifiers{hub}
	if cfg.IngressURL != "" {
		notifiers = append(notifiers, ingress.NewClient(cfg.IngressURL, logger))
	}

	m := metrics.New()
	svc := service.New(db, gateway, notifiers, m, cfg, logger)

	httpServer := httptransport.NewServer(svc, prompts.DefaultRegistry, ws.NewServer(hub, logger), m)
	rpcServer, err := rpc.NewServer(svc, prompts.DefaultRegistry, logger)
	if err != nil {
		return fmt.Errorf("initialize rpc server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		svc.RunStaleRunReaper(gctx, 30*time.Second)
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("http api listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.RPCPort)
		logger.Info("json-rpc listening", "addr", addr)
		if err := rpcServer.Start(addr); err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down agent engine")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down http server gracefully", "error", err)
		}
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down rpc server gracefully", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("agent engine stopped")
	return err
}
