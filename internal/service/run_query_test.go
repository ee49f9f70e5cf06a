package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/config"
	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/fingerprint"
)

func TestGetRunNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, &stubBackend{}, nil)

	_, err := svc.GetRun(context.Background(), "run_missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = svc.GetRunEvents(context.Background(), "run_missing", 0, nil, 0)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestListSessionRuns(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &stubBackend{text: synthesisOutput}, nil)

	for _, inputs := range []string{`{"a":1}`, `{"a":2}`} {
		_, err := svc.RunAgent(ctx, synthesisRequest(json.RawMessage(inputs)), echoPrompt)
		require.NoError(t, err)
	}

	runs, err := svc.ListSessionRuns(ctx, "sess_1", "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = svc.ListSessionRuns(ctx, "sess_1", domain.AgentTypeDesign, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.ListSessionRuns(ctx, "", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = svc.ListSessionRuns(ctx, "sess_1", "poetry", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestVerifyRun(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, &stubBackend{text: synthesisOutput}, nil)

	res, err := svc.RunAgent(ctx, synthesisRequest(json.RawMessage(`{"b":[1,2],"a":"x"}`)), echoPrompt)
	require.NoError(t, err)

	v, err := svc.VerifyRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.True(t, v.Match)
	assert.Equal(t, v.StoredHash, v.ComputedHash)
	assert.Len(t, v.StoredHash, fingerprint.HexLength)

	// A row whose hash no longer matches its inputs is reported.
	tampered := &domain.Run{
		RunID:     "run_tampered",
		SessionID: "sess_1",
		AgentType: domain.AgentTypeSynthesis,
		InputHash: v.StoredHash,
		Inputs:    json.RawMessage(`{"a":"y"}`),
		Status:    domain.RunStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRun(ctx, tampered))
	v, err = svc.VerifyRun(ctx, "run_tampered")
	require.NoError(t, err)
	assert.False(t, v.Match)
}

func TestSweepStaleRuns(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{StaleRunAfter: time.Minute}
	svc, store, notifier := newTestService(t, &stubBackend{}, cfg)

	old := &domain.Run{
		RunID:     "run_old",
		SessionID: "sess_1",
		AgentType: domain.AgentTypeDesign,
		InputHash: "h",
		Inputs:    json.RawMessage(`{}`),
		Status:    domain.RunStatusQueued,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, store.CreateRun(ctx, old))
	_, err := store.MarkRunRunning(ctx, "run_old", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	fresh := *old
	fresh.RunID = "run_fresh"
	fresh.CreatedAt = time.Now().UTC()
	require.NoError(t, store.CreateRun(ctx, &fresh))

	assert.Equal(t, 1, svc.sweepStaleRuns(ctx))
	assert.Equal(t, 0, svc.sweepStaleRuns(ctx))

	run, err := svc.GetRun(ctx, "run_old")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "did not finish")
	assert.Equal(t, []domain.RunStatus{domain.RunStatusFailed}, notifier.statuses("run_old"))

	run, err = svc.GetRun(ctx, "run_fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusQueued, run.Status)
}

type errNotifier struct{ err error }

func (n errNotifier) Notify(context.Context, domain.RunNotification) error { return n.err }

func TestNotifiersJoinErrors(t *testing.T) {
	rec := &recordingNotifier{}
	boom := errors.New("boom")
	ns := Notifiers{rec, nil, errNotifier{err: boom}}

	err := ns.Notify(context.Background(), domain.RunNotification{RunID: "run_1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.sent, 1)
}
