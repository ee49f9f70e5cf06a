package rpc

import (
	"context"
	"encoding/json"
	"net"
	"net/rpc/jsonrpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/adapter/llm"
	"github.com/leanflow/agentengine/internal/config"
	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/service"
	"github.com/leanflow/agentengine/tests/helpers"
)

func startServer(t *testing.T) string {
	t.Helper()
	backend := llm.NewGateway([]llm.Provider{llm.NewMockProvider()}, nil, nil)
	svc := service.New(helpers.NewTestSQLiteStore(t), backend, nil, nil, &config.Config{}, nil)
	srv, err := NewServer(svc, nil, nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func TestEngineRunAgentAndGetRun(t *testing.T) {
	client, err := jsonrpc.Dial("tcp", startServer(t))
	require.NoError(t, err)
	defer client.Close()

	var result domain.RunResult
	err = client.Call("Engine.RunAgent", &domain.RunRequest{
		SessionID: "s1",
		AgentType: domain.AgentTypeSynthesis,
		Inputs:    json.RawMessage(`{"observations":[{"id":"obs-1"}]}`),
	}, &result)
	require.NoError(t, err)
	assert.True(t, result.Success, result.Error)
	assert.Equal(t, llm.ProviderMock, result.Provider)

	var run domain.Run
	require.NoError(t, client.Call("Engine.GetRun", &GetRunRequest{RunID: result.RunID}, &run))
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
}

func TestEngineErrors(t *testing.T) {
	client, err := jsonrpc.Dial("tcp", startServer(t))
	require.NoError(t, err)
	defer client.Close()

	var result domain.RunResult
	err = client.Call("Engine.RunAgent", &domain.RunRequest{SessionID: "s1", AgentType: "poetry", Inputs: json.RawMessage(`{}`)}, &result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent_type")

	var run domain.Run
	err = client.Call("Engine.GetRun", &GetRunRequest{RunID: "run_missing"}, &run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrRunNotFound.Error())
}
