// Package metrics provides Prometheus metrics for the Thistle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks pipeline runs by final status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// RunsInFlight tracks runs currently executing
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thistle",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs currently executing",
		},
	)

	// StageDuration tracks the duration of each pipeline stage
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// RowsTotal tracks rows seen per table and outcome
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "data",
			Name:      "rows_total",
			Help:      "Total number of input rows by table and outcome",
		},
		[]string{"table", "outcome"},
	)

	// RealUsers is the number of resolved real users in the last run
	RealUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thistle",
			Subsystem: "identity",
			Name:      "real_users",
			Help:      "Number of resolved real users in the last completed run",
		},
	)

	// SinkWritesTotal tracks report emission per sink
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of report writes by sink and status",
		},
		[]string{"sink", "status"},
	)
)

// RecordRun records a finished pipeline run
func RecordRun(status string) {
	RunsTotal.WithLabelValues(status).Inc()
}

// RecordStage records the duration of a pipeline stage
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordRows records rows for a table
func RecordRows(table, outcome string, count int) {
	RowsTotal.WithLabelValues(table, outcome).Add(float64(count))
}

// RecordSinkWrite records a report emission
func RecordSinkWrite(sink, status string) {
	SinkWritesTotal.WithLabelValues(sink, status).Inc()
}
