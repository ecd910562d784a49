// Package metrics exposes pipeline, store and HTTP measurements to
// Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every qcbank collector. It implements question.Metrics
// and store.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	submissions      *prometheus.CounterVec
	analyzerDuration *prometheus.HistogramVec
	analyzerFailures *prometheus.CounterVec
	versionsAppended prometheus.Counter
	storeConflicts   prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegisterer(reg, reg)
}

// NewWithRegisterer registers the collectors on r. g serves /metrics and
// may be nil when the caller exposes the registry itself.
func NewWithRegisterer(r prometheus.Registerer, g *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: g,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qcbank_submissions_total",
			Help: "Question submissions by outcome",
		}, []string{"status"}),
		analyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qcbank_analyzer_duration_seconds",
			Help:    "Analyzer call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"analyzer", "outcome"}),
		analyzerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qcbank_analyzer_failures_total",
			Help: "Analyzer failures by analyzer and kind",
		}, []string{"analyzer", "kind"}),
		versionsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qcbank_versions_appended_total",
			Help: "Versions appended to the store",
		}),
		storeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qcbank_store_conflicts_total",
			Help: "Append conflicts retried by the store",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qcbank_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qcbank_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.MustRegister(
		m.submissions,
		m.analyzerDuration,
		m.analyzerFailures,
		m.versionsAppended,
		m.storeConflicts,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SubmissionFinished(status string) {
	m.submissions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAnalyzer(analyzer, outcome string, d time.Duration) {
	m.analyzerDuration.WithLabelValues(analyzer, outcome).Observe(d.Seconds())
}

func (m *Metrics) AnalyzerFailed(analyzer, kind string) {
	m.analyzerFailures.WithLabelValues(analyzer, kind).Inc()
}

func (m *Metrics) VersionAppended() {
	m.versionsAppended.Inc()
}

func (m *Metrics) StoreConflict() {
	m.storeConflicts.Inc()
}

// ObserveRequest records one HTTP request. route is the matched pattern,
// not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
