// Package metrics collects gateway counters. Prometheus collectors feed the
// /metrics endpoint; a small set of atomic mirrors backs the /status JSON
// without a registry scrape.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks delivery, dispatch, and outbound call counters.
// All record methods are safe to call on a nil receiver, so components can
// run without metrics wired (tests, CLI one-shots).
type Metrics struct {
	registry *prometheus.Registry

	deliveries       *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	dispatchSeconds  *prometheus.HistogramVec
	authFailures     prometheus.Counter
	outboundCalls    *prometheus.CounterVec
	outboundRetries  *prometheus.CounterVec

	totalDeliveries      atomic.Int64
	totalDuplicates      atomic.Int64
	totalDispatchFailure atomic.Int64
	totalAuthFailures    atomic.Int64
	totalOutbound        atomic.Int64
}

// New creates a Metrics instance backed by its own prometheus registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botgate_deliveries_total",
			Help: "Webhook deliveries accepted for processing, per tenant.",
		}, []string{"tenant"}),
		duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botgate_duplicates_total",
			Help: "Webhook deliveries rejected as duplicates, per tenant.",
		}, []string{"tenant"}),
		dispatchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botgate_dispatch_failures_total",
			Help: "Processing unit invocations that returned an error or panicked, per tenant.",
		}, []string{"tenant"}),
		dispatchSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botgate_dispatch_duration_seconds",
			Help:    "Processing unit invocation duration, per tenant.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tenant"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "botgate_auth_failures_total",
			Help: "Webhook deliveries dropped for unknown tenant, disabled tenant, or bad secret.",
		}),
		outboundCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botgate_outbound_calls_total",
			Help: "Outbound Bot API calls by method and terminal outcome.",
		}, []string{"method", "outcome"}),
		outboundRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botgate_outbound_retries_total",
			Help: "Outbound Bot API retry attempts by method and reason.",
		}, []string{"method", "reason"}),
	}
}

// Handler returns the HTTP handler serving the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDelivery counts a delivery accepted for dispatch.
func (m *Metrics) RecordDelivery(tenant string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(tenant).Inc()
	m.totalDeliveries.Add(1)
}

// RecordDuplicate counts a delivery absorbed by the deduplicator.
func (m *Metrics) RecordDuplicate(tenant string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(tenant).Inc()
	m.totalDuplicates.Add(1)
}

// RecordAuthFailure counts a delivery silently dropped before dispatch.
func (m *Metrics) RecordAuthFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
	m.totalAuthFailures.Add(1)
}

// RecordDispatch records one processing unit invocation.
func (m *Metrics) RecordDispatch(tenant string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.dispatchSeconds.WithLabelValues(tenant).Observe(elapsed.Seconds())
	if failed {
		m.dispatchFailures.WithLabelValues(tenant).Inc()
		m.totalDispatchFailure.Add(1)
	}
}

// RecordOutbound counts a terminal outbound call outcome
// ("ok", "api_error", "rate_limited", "transport_error").
func (m *Metrics) RecordOutbound(method, outcome string) {
	if m == nil {
		return
	}
	m.outboundCalls.WithLabelValues(method, outcome).Inc()
	m.totalOutbound.Add(1)
}

// RecordOutboundRetry counts one retried outbound attempt
// (reason "rate_limit" or "transport").
func (m *Metrics) RecordOutboundRetry(method, reason string) {
	if m == nil {
		return
	}
	m.outboundRetries.WithLabelValues(method, reason).Inc()
}

// Snapshot is a serializable point-in-time counter view for /status.
type Snapshot struct {
	Deliveries       int64 `json:"deliveries"`
	Duplicates       int64 `json:"duplicates"`
	DispatchFailures int64 `json:"dispatch_failures"`
	AuthFailures     int64 `json:"auth_failures"`
	OutboundCalls    int64 `json:"outbound_calls"`
}

// Snapshot returns the current totals.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Deliveries:       m.totalDeliveries.Load(),
		Duplicates:       m.totalDuplicates.Load(),
		DispatchFailures: m.totalDispatchFailure.Load(),
		AuthFailures:     m.totalAuthFailures.Load(),
		OutboundCalls:    m.totalOutbound.Load(),
	}
}
