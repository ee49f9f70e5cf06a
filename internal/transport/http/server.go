// Package http provides the HTTP server implementation for the agent engine.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/leanflow/agentengine/internal/metrics"
	"github.com/leanflow/agentengine/internal/prompts"
	"github.com/leanflow/agentengine/internal/service"
	v1 "github.com/leanflow/agentengine/internal/transport/http/v1"
	"github.com/leanflow/agentengine/internal/transport/ws"
)

// NewServer creates and configures the public HTTP server: the v1 run API,
// the session stream and the metrics endpoint. stream and m may be nil.
func NewServer(svc *service.Service, registry *prompts.Registry, stream *ws.Server, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, registry)
	v1Handler.RegisterRoutes(e)

	if stream != nil {
		e.GET("/v1/sessions/:session_id/stream", stream.HandleStream)
	}
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	return e
}
