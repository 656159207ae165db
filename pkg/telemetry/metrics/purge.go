package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PurgeMetrics tracks purge runs.
//
// Metrics:
//   - truncator_purge_runs_total: Runs by status
//   - truncator_purge_rows_deleted_total: Rows deleted by table
//   - truncator_purge_run_duration_seconds: Run duration histogram by status
//   - truncator_purge_last_success_timestamp_seconds: Unix time of the last successful run
type PurgeMetrics struct {
	runsTotal     *prometheus.CounterVec
	rowsDeleted   *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastSuccessAt prometheus.Gauge
}

// NewPurgeMetrics creates and registers purge metrics with the provided registry.
func NewPurgeMetrics(cfg *Config, registry *prometheus.Registry) *PurgeMetrics {
	pm := &PurgeMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of purge runs",
			},
			[]string{"status"},
		),

		rowsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_deleted_total",
				Help:      "Total number of rows deleted by committed purges",
			},
			[]string{"table"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of purge runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"status"},
		),

		lastSuccessAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix timestamp of the last successful purge",
			},
		),
	}

	registry.MustRegister(
		pm.runsTotal,
		pm.rowsDeleted,
		pm.runDuration,
		pm.lastSuccessAt,
	)

	return pm
}

func (pm *PurgeMetrics) observeRun(status string, duration time.Duration, now time.Time) {
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	if status == "success" {
		pm.lastSuccessAt.Set(float64(now.Unix()))
	}
}

func (pm *PurgeMetrics) addDeleted(table string, rows int64) {
	if rows <= 0 {
		return
	}
	pm.rowsDeleted.WithLabelValues(table).Add(float64(rows))
}
