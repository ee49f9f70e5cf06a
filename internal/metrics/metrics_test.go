package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/domain"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(domain.AgentTypeSynthesis, OutcomeSucceeded)
	m.ObserveRun(domain.AgentTypeSynthesis, OutcomeSucceeded)
	m.ObserveRun(domain.AgentTypeDesign, OutcomeCached)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("synthesis", OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("design", OutcomeCached)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun(domain.AgentTypeSynthesis, OutcomeFailed)
	m.ObserveBackend("anthropic", time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveBackend("anthropic", 1500*time.Millisecond)
	m.ObserveRun(domain.AgentTypeSolutions, OutcomeFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `agentengine_backend_latency_seconds_count{provider="anthropic"} 1`)
	assert.Contains(t, string(body), `agentengine_runs_total{agent_type="solutions",outcome="failed"} 1`)
}
