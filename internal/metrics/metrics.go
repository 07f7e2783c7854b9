// Package metrics holds the Prometheus collectors of the chat service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	oracleRequests *prometheus.CounterVec
	oracleDuration *prometheus.HistogramVec
	turns          *prometheus.CounterVec
}

// New registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "oracle_requests_total",
			Help:      "Generation oracle calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatbot",
			Name:      "oracle_request_duration_seconds",
			Help:      "Generation oracle latency by operation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "turns_total",
			Help:      "Send-message turns by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.oracleRequests,
		m.oracleDuration,
		m.turns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOracle records one oracle call.
func (m *Metrics) ObserveOracle(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(operation, outcome).Inc()
	m.oracleDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveTurn records the outcome of a send-message turn.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
