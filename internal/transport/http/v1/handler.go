// Package v1 provides the public HTTP handlers for the agent engine.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/prompts"
	"github.com/leanflow/agentengine/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	prompts *prompts.Registry
}

// NewHandler creates a new handler. A nil registry uses prompts.DefaultRegistry.
func NewHandler(service *service.Service, registry *prompts.Registry) *Handler {
	if registry == nil {
		registry = prompts.DefaultRegistry
	}
	return &Handler{
		service: service,
		prompts: registry,
	}
}

// RegisterRoutes registers the v1 routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions/:session_id/runs", h.CreateRun)
	e.GET("/v1/sessions/:session_id/runs", h.ListSessionRuns)

	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)
	e.GET("/v1/runs/:run_id/verify", h.VerifyRun)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps service errors onto status codes.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
