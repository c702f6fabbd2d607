// Package metrics provides Prometheus instrumentation for migrations and
// connectors.
//
// # Basic Usage
//
//	// Count a committed batch
//	metrics.RecordsProcessed.WithLabelValues("postgres", "success").Add(float64(n))
//
//	// Time a stage
//	timer := metrics.NewTimer("extract")
//	records, err := src.ExtractData(ctx, req)
//	timer.ObserveStage()
//
// All collectors are registered with the default Prometheus registry on
// package initialisation; Handler exposes them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "migrate"

var (
	// RecordsProcessed counts records handed to LoadData.
	// Labels: target (connector type), status (success/failure)
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of records handed to target connectors",
		},
		[]string{"target", "status"},
	)

	// BatchesLoaded counts LoadData calls.
	// Labels: target (connector type), status (success/failure)
	BatchesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_loaded_total",
			Help:      "Total number of load batches",
		},
		[]string{"target", "status"},
	)

	// MigrationRuns counts finished migration runs by terminal status
	MigrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of migration runs by terminal status",
		},
		[]string{"status"},
	)

	// StageDuration observes how long each engine stage took, in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of migration engine stages",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4.4m
		},
		[]string{"stage"},
	)

	// JobsInFlight tracks migrations currently executing
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of migration jobs currently running",
		},
	)

	// JobsQueued tracks async jobs waiting for a worker
	JobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_queued",
			Help:      "Number of submitted migration jobs waiting for a worker",
		},
	)

	// ActiveConnections tracks open connector sessions.
	// Labels: type (connector type)
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connected connector sessions",
		},
		[]string{"type"},
	)
)

// Handler returns the HTTP handler serving the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer provides a simple timing mechanism for measuring stage durations.
type Timer struct {
	start time.Time
	stage string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(stage string) *Timer {
	return &Timer{
		start: time.Now(),
		stage: stage,
	}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveStage records the elapsed time in StageDuration and returns it
func (t *Timer) ObserveStage() time.Duration {
	d := t.Stop()
	StageDuration.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// Status maps an error to the status label used by the counters
func Status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
