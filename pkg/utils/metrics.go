package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects run-level counters for the compliance pipeline. A nil
// *Metrics is valid and records nothing, so components never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	apiCalls       *prometheus.CounterVec
	hostsResolved  prometheus.Counter
	hostsSkipped   prometheus.Counter
	recordsEmitted *prometheus.CounterVec
	pollDuration   prometheus.Histogram
}

func NewMetrics(enableRuntimeMetrics bool) *Metrics {
	reg := prometheus.NewRegistry()
	if enableRuntimeMetrics {
		_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		_ = reg.Register(collectors.NewGoCollector())
	}

	m := &Metrics{
		registry: reg,
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchlynx_api_calls_total",
			Help: "Management server API calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		hostsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchlynx_hosts_resolved_total",
			Help: "Hosts resolved from the target filter.",
		}),
		hostsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchlynx_hosts_skipped_total",
			Help: "Hosts excluded from a run via the skip report.",
		}),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchlynx_records_emitted_total",
			Help: "Records emitted per output set.",
		}, []string{"set"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patchlynx_scan_poll_duration_seconds",
			Help:    "Wall time spent polling a remote compliance scan.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	reg.MustRegister(m.apiCalls, m.hostsResolved, m.hostsSkipped, m.recordsEmitted, m.pollDuration)
	return m
}

func (m *Metrics) APICall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) HostsResolved(n int) {
	if m == nil {
		return
	}
	m.hostsResolved.Add(float64(n))
}

func (m *Metrics) HostSkipped() {
	if m == nil {
		return
	}
	m.hostsSkipped.Inc()
}

func (m *Metrics) RecordsEmitted(set string, n int) {
	if m == nil {
		return
	}
	m.recordsEmitted.WithLabelValues(set).Add(float64(n))
}

func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
}

// Handler exposes the registry for an optional /metrics listener.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
