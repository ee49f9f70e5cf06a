// Package rpc exposes the engine over JSON-RPC for internal callers.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/prompts"
	"github.com/leanflow/agentengine/internal/service"
)

// Server exposes engine RPC endpoints under the "Engine" name.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	rpcServer *rpc.Server
	logger    *slog.Logger
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the engine service. A nil
// registry uses prompts.DefaultRegistry.
func NewServer(svc *service.Service, registry *prompts.Registry, logger *slog.Logger) (*Server, error) {
	if registry == nil {
		registry = prompts.DefaultRegistry
	}
	if logger == nil {
		logger = slog.Default()
	}
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc, prompts: registry}
	if err := rpcServer.RegisterName("Engine", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts RPC connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.logger.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements engine RPC methods.
type Handler struct {
	service *service.Service
	prompts *prompts.Registry
}

// GetRunRequest identifies a run.
type GetRunRequest struct {
	RunID string `json:"run_id"`
}

// RunAgent executes an agent request with the registered prompt builder.
func (h *Handler) RunAgent(req *domain.RunRequest, resp *domain.RunResult) error {
	if req == nil {
		return errors.New("run request is required")
	}

	build, _ := h.prompts.Get(req.AgentType)
	result, err := h.service.RunAgent(context.Background(), *req, build)
	if err != nil {
		return err
	}
	if resp != nil && result != nil {
		*resp = *result
	}
	return nil
}

// GetRun returns a run by id.
func (h *Handler) GetRun(req *GetRunRequest, resp *domain.Run) error {
	if req == nil || req.RunID == "" {
		return errors.New("run_id is required")
	}

	run, err := h.service.GetRun(context.Background(), req.RunID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = *run
	}
	return nil
}
