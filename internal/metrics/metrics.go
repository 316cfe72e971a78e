// Package metrics holds the daemon's own Prometheus instrumentation,
// exposed on the status server. These describe loggard itself, not the
// host; host state lives in the datastore.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loggard_job_runs_total",
			Help: "Scheduled job executions by job name and outcome",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loggard_job_duration_seconds",
			Help:    "Scheduled job execution time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loggard_log_events_ingested_total",
			Help: "Structured log events persisted, by source",
		},
		[]string{"source"},
	)

	CorruptRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggard_corrupt_records_total",
			Help: "Records rejected during batch insert validation",
		},
	)

	TracesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggard_traces_recorded_total",
			Help: "Enriched event traces persisted",
		},
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loggard_retention_rows_deleted_total",
			Help: "Rows removed by the retention sweep",
		},
	)

	DBSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loggard_db_size_bytes",
			Help: "Size of the SQLite database file",
		},
	)

	WALSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loggard_wal_size_bytes",
			Help: "Size of the WAL sidecar file",
		},
	)

	ProcessRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loggard_process_rss_bytes",
			Help: "Resident set size of the daemon process",
		},
	)
)
