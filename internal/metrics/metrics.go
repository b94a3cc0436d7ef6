// Package metrics holds the Prometheus collectors of the API and worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "emianalyzer"

// Metrics owns its registry so several instances can coexist in tests.
// The helper methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	SnapshotBuilds   prometheus.Counter
	SnapshotDuration prometheus.Histogram
	SnapshotCache    *prometheus.CounterVec
	RecordWrites     *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	RiskAssessments  *prometheus.CounterVec
	RiskEscalations  prometheus.Counter
	SweepDuration    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		SnapshotBuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_builds_total",
			Help:      "Financial snapshots computed from records.",
		}),
		SnapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_build_duration_seconds",
			Help:      "Time to fetch records and build one snapshot.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SnapshotCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_lookups_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		RecordWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_writes_total",
			Help:      "Record writes by kind and action.",
		}, []string{"kind", "action"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_events_published_total",
			Help:      "Record-change events by publish outcome.",
		}, []string{"outcome"}),
		RiskAssessments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Stored risk assessments by level.",
		}, []string{"level"}),
		RiskEscalations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_escalations_total",
			Help:      "Assessments whose level is higher than the previous one.",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_sweep_duration_seconds",
			Help:      "Duration of a full risk sweep over all users.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.SnapshotCache.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.SnapshotCache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) ObserveSnapshot(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotBuilds.Inc()
	m.SnapshotDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordWrite(kind, action string) {
	if m == nil {
		return
	}
	m.RecordWrites.WithLabelValues(kind, action).Inc()
}

// EventPublished records "ok", "failed" or "skipped" for one change event.
func (m *Metrics) EventPublished(outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Assessment(level string, escalated bool) {
	if m == nil {
		return
	}
	m.RiskAssessments.WithLabelValues(level).Inc()
	if escalated {
		m.RiskEscalations.Inc()
	}
}
