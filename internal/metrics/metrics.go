// Package metrics holds the Prometheus collectors for run outcomes and
// backend latency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leanflow/agentengine/internal/domain"
)

// Outcome labels for runs_total.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
)

// Metrics bundles the engine collectors with the registry they live in.
type Metrics struct {
	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentengine",
			Name:      "runs_total",
			Help:      "Agent run requests by agent type and outcome.",
		}, []string{"agent_type", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentengine",
			Name:      "backend_latency_seconds",
			Help:      "Latency of generative backend calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"provider"}),
	}
	m.registry.MustRegister(m.runsTotal, m.backendLatency)
	return m
}

// ObserveRun counts one finished or cached run. A nil receiver is a no-op.
func (m *Metrics) ObserveRun(agentType domain.AgentType, outcome string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(agentType), outcome).Inc()
}

// ObserveBackend records the latency of one backend call.
func (m *Metrics) ObserveBackend(provider string, d time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	m.backendLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
