// Package metrics exposes the ambient operational metrics SPEC_FULL.md
// §5 calls for: handler latency, work-queue depth, and adapter circuit
// state. Grounded on the teacher's health-endpoint contracts
// (internal/http/contracts.go's LatencyMetrics/CircuitHealth), moved
// from mock JSON into real github.com/prometheus/client_golang
// collectors scraped at GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors the HTTP server and Reason Engine
// workers record against.
type Registry struct {
	HandlerLatency *prometheus.HistogramVec
	QueueDepth     prometheus.Gauge
	CircuitState   *prometheus.GaugeVec // 0=closed, 0.5=half-open, 1=open
	AdapterFetches *prometheus.CounterVec
}

// NewRegistry creates and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		HandlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reasoncard",
			Name:      "handler_latency_seconds",
			Help:      "HTTP handler latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status_class"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reasoncard",
			Name:      "reason_engine_queue_depth",
			Help:      "Number of events currently queued for Reason Engine processing.",
		}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reasoncard",
			Name:      "adapter_circuit_state",
			Help:      "Per-adapter circuit breaker state (0=closed, 0.5=half-open, 1=open).",
		}, []string{"adapter"}),
		AdapterFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reasoncard",
			Name:      "adapter_fetch_total",
			Help:      "Adapter fetch attempts by outcome.",
		}, []string{"adapter", "outcome"}),
	}
	reg.MustRegister(r.HandlerLatency, r.QueueDepth, r.CircuitState, r.AdapterFetches)
	return r
}

func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// ObserveHandler records a completed HTTP handler invocation.
func (r *Registry) ObserveHandler(route string, status int, d time.Duration) {
	r.HandlerLatency.WithLabelValues(route, StatusClass(status)).Observe(d.Seconds())
}

// SetCircuitState implements reasonengine.AdapterMetricsSink.
func (r *Registry) SetCircuitState(adapter string, state float64) {
	r.CircuitState.WithLabelValues(adapter).Set(state)
}

// IncFetch implements reasonengine.AdapterMetricsSink.
func (r *Registry) IncFetch(adapter, outcome string) {
	r.AdapterFetches.WithLabelValues(adapter, outcome).Inc()
}
