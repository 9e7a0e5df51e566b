// Package metrics holds the Prometheus collectors shared by the server, the
// sync scheduler and the migration commands.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kalender"

// Migration outcomes.
const (
	OutcomeConverted = "converted"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics is a set of collectors registered on their own registry. All
// methods are safe to call on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	migrationRecords *prometheus.CounterVec
	syncRuns         *prometheus.CounterVec
	syncDuration     prometheus.Summary
	syncLastSuccess  prometheus.Gauge
	syncEvents       prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	storeFetches     *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.migrationRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migration_records_total",
		Help:      "Records handled by migration commands, by command and outcome",
	}, []string{"command", "outcome"})
	m.syncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Mirror and backup sync runs, by result",
	}, []string{"result"})
	m.syncDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Time spent in one sync run",
	})
	m.syncLastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful sync",
	})
	m.syncEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_events",
		Help:      "Events seen in the last successful sync",
	})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code",
	}, []string{"route", "code"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	m.storeFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_fetches_total",
		Help:      "Event list fetches from the backing store, by result",
	}, []string{"result"})

	m.reg.MustRegister(
		m.migrationRecords,
		m.syncRuns,
		m.syncDuration,
		m.syncLastSuccess,
		m.syncEvents,
		m.httpRequests,
		m.httpDuration,
		m.storeFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// MigrationRecord counts one record handled by command with outcome.
func (m *Metrics) MigrationRecord(command, outcome string) {
	if m == nil {
		return
	}
	m.migrationRecords.WithLabelValues(command, outcome).Inc()
}

// SyncRun records the result of one sync run.
func (m *Metrics) SyncRun(d time.Duration, events int, err error) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(d.Seconds())
	if err != nil {
		m.syncRuns.WithLabelValues("error").Inc()
		return
	}
	m.syncRuns.WithLabelValues("ok").Inc()
	m.syncLastSuccess.SetToCurrentTime()
	m.syncEvents.Set(float64(events))
}

// StoreFetch counts one fetch of the event list.
func (m *Metrics) StoreFetch(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeFetches.WithLabelValues(result).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
