package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leanflow/agentengine/internal/domain"
)

// CreateRunRequest is the body of POST /v1/sessions/:session_id/runs.
type CreateRunRequest struct {
	AgentType  domain.AgentType `json:"agent_type"`
	Inputs     json.RawMessage  `json:"inputs"`
	CallerID   string           `json:"caller_id,omitempty"`
	ForceRerun bool             `json:"force_rerun,omitempty"`
}

// CreateRun executes an agent for the session.
// POST /v1/sessions/:session_id/runs
//
// A run that executed and failed still answers 200 with success=false.
func (h *Handler) CreateRun(c echo.Context) error {
	var body CreateRunRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	build, _ := h.prompts.Get(body.AgentType)
	result, err := h.service.RunAgent(c.Request().Context(), domain.RunRequest{
		SessionID:  c.Param("session_id"),
		AgentType:  body.AgentType,
		Inputs:     body.Inputs,
		CallerID:   body.CallerID,
		ForceRerun: body.ForceRerun,
	}, build)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetRun returns one run.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.service.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// ListSessionRuns lists a session's runs newest first.
// GET /v1/sessions/:session_id/runs?agent_type=&limit=
func (h *Handler) ListSessionRuns(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	agentType := domain.AgentType(c.QueryParam("agent_type"))

	runs, err := h.service.ListSessionRuns(c.Request().Context(), c.Param("session_id"), agentType, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GetRunEvents retrieves events for a run.
// GET /v1/runs/:run_id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetRunEvents(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	events, err := h.service.GetRunEvents(c.Request().Context(), c.Param("run_id"), afterTs, types, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// VerifyRun recomputes a run's input fingerprint.
// GET /v1/runs/:run_id/verify
func (h *Handler) VerifyRun(c echo.Context) error {
	v, err := h.service.VerifyRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
