package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/domain"
)

func startStreamServer(t *testing.T) (*Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/v1/sessions/:session_id/stream", NewServer(hub, nil).HandleStream)
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ack subscribedMessage
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "subscribed", ack.Type)
	return conn
}

func TestStreamDeliversSessionNotifications(t *testing.T) {
	hub, base := startStreamServer(t)
	conn := dial(t, base+"/v1/sessions/s1/stream")

	require.NoError(t, hub.Notify(context.Background(), domain.RunNotification{
		Type:      "run_status",
		SessionID: "s1",
		RunID:     "run_1",
		AgentType: domain.AgentTypeSynthesis,
		Status:    domain.RunStatusSucceeded,
	}))

	var got domain.RunNotification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "run_1", got.RunID)
	assert.Equal(t, domain.RunStatusSucceeded, got.Status)
}

func TestStreamIsolatesSessions(t *testing.T) {
	hub, base := startStreamServer(t)
	other := dial(t, base+"/v1/sessions/s2/stream")
	mine := dial(t, base+"/v1/sessions/s1/stream")

	require.NoError(t, hub.Notify(context.Background(), domain.RunNotification{SessionID: "s1", RunID: "run_a"}))
	require.NoError(t, hub.Notify(context.Background(), domain.RunNotification{SessionID: "s2", RunID: "run_b"}))

	var got domain.RunNotification
	require.NoError(t, mine.ReadJSON(&got))
	assert.Equal(t, "run_a", got.RunID)

	require.NoError(t, other.ReadJSON(&got))
	assert.Equal(t, "run_b", got.RunID)
}

func TestHubNotifyAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Fill the buffer so the send cannot succeed.
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- &SessionMessage{}
	}
	err := hub.Notify(context.Background(), domain.RunNotification{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrHubStopped)
}
