package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leanflow/agentengine/internal/domain"
)

// Client talks to the engine's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RunRequest is the body sent to create a run.
type RunRequest struct {
	AgentType  domain.AgentType `json:"agent_type"`
	Inputs     json.RawMessage  `json:"inputs"`
	CallerID   string           `json:"caller_id,omitempty"`
	ForceRerun bool             `json:"force_rerun,omitempty"`
}

// Run executes an agent for a session.
func (c *Client) Run(ctx context.Context, sessionID string, req RunRequest) (*domain.RunResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var result domain.RunResult
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/runs"
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun fetches a run.
func (c *Client) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Events fetches a run's event trail.
func (c *Client) Events(ctx context.Context, runID string) ([]domain.Event, error) {
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+url.PathEscape(runID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Watch streams a session's run notifications to handle until ctx is
// cancelled or the connection drops.
func (c *Client) Watch(ctx context.Context, sessionID string, handle func(domain.RunNotification)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/v1/sessions/" + url.PathEscape(sessionID) + "/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var n domain.RunNotification
		if err := json.Unmarshal(data, &n); err != nil {
			continue
		}
		if n.RunID == "" {
			// subscription ack
			continue
		}
		handle(n)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
