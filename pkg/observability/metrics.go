package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every collector metric.
const Namespace = "odd_collector"

// Job and request outcomes used as the "status" label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the collector's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobsRunning     *prometheus.GaugeVec
	batchesIngested *prometheus.CounterVec
	itemsIngested   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	runsSkipped     *prometheus.CounterVec
}

// NewMetrics registers the collector metrics with reg. A nil reg uses the
// prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "job",
				Name:      "runs_total",
				Help:      "Total number of finished job runs",
			},
			[]string{"adapter", "status"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "job",
				Name:      "duration_seconds",
				Help:      "Duration of job runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"adapter", "status"},
		),
		jobsRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "job",
				Name:      "running",
				Help:      "Number of job runs in progress",
			},
			[]string{"adapter"},
		),
		batchesIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ingestion",
				Name:      "batches_total",
				Help:      "Total number of ingestion batches sent",
			},
			[]string{"adapter", "status"},
		),
		itemsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "ingestion",
				Name:      "items_total",
				Help:      "Total number of data entities accepted by the platform",
			},
			[]string{"adapter"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "platform",
				Name:      "request_duration_seconds",
				Help:      "Duration of platform API requests in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint", "status"},
		),
		runsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "skipped_runs_total",
				Help:      "Scheduled runs skipped because they were late or too many were running",
			},
			[]string{"entry", "reason"},
		),
	}
}

// JobStarted marks one more running job of adapter.
func (m *Metrics) JobStarted(adapter string) {
	if m == nil {
		return
	}
	m.jobsRunning.WithLabelValues(adapter).Inc()
}

// JobFinished records the outcome of one job run.
func (m *Metrics) JobFinished(adapter, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobsRunning.WithLabelValues(adapter).Dec()
	m.jobRuns.WithLabelValues(adapter, status).Inc()
	m.jobDuration.WithLabelValues(adapter, status).Observe(d.Seconds())
}

// BatchIngested records one ingestion request of items entities.
func (m *Metrics) BatchIngested(adapter, status string, items int) {
	if m == nil {
		return
	}
	m.batchesIngested.WithLabelValues(adapter, status).Inc()
	if status == StatusSuccess {
		m.itemsIngested.WithLabelValues(adapter).Add(float64(items))
	}
}

// RequestObserved records one platform API call.
func (m *Metrics) RequestObserved(endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// RunSkipped records a scheduled run that was not started.
func (m *Metrics) RunSkipped(entry, reason string) {
	if m == nil {
		return
	}
	m.runsSkipped.WithLabelValues(entry, reason).Inc()
}
