// Package ingress pushes run notifications to an external ingress gateway
// over JSON-RPC.
package ingress

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"

	"github.com/leanflow/agentengine/internal/domain"
)

type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewClient creates a client for the ingress at baseURL. An empty baseURL
// yields a client whose Notify is a no-op.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		addr:        resolveRPCAddr(baseURL),
		dialTimeout: 5 * time.Second,
		callTimeout: 5 * time.Second,
		logger:      logger,
	}
}

// SendRequest represents the request body for event delivery.
type SendRequest struct {
	SessionID string                 `json:"session_id"`
	Event     domain.RunNotification `json:"event"`
}

// SendResponse represents the response for event delivery.
type SendResponse struct {
	OK        bool `json:"ok"`
	Delivered bool `json:"delivered"`
}

// Notify pushes one run notification to the ingress.
func (c *Client) Notify(ctx context.Context, n domain.RunNotification) error {
	if c.addr == "" {
		return nil
	}

	req := &SendRequest{
		SessionID: n.SessionID,
		Event:     n,
	}

	var resp SendResponse
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.call(ctx, "Ingress.PushEvent", req, &resp); err != nil {
		return fmt.Errorf("failed to push event to ingress: %w", err)
	}
	if !resp.OK {
		c.logger.Warn("ingress rpc returned ok=false", "delivered", resp.Delivered, "run_id", n.RunID)
		return fmt.Errorf("ingress rpc returned ok=false")
	}

	return nil
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}
