package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default metric name parts.
const (
	DefaultNamespace = "truncator"
	DefaultSubsystem = "purge"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Namespace prefixes every metric name.
	// Default: "truncator"
	Namespace string

	// Subsystem follows the namespace in every metric name.
	// Default: "purge"
	Subsystem string

	// DurationBuckets are the histogram buckets of run durations in seconds.
	DurationBuckets []float64

	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

// Collector owns the Prometheus registry of the truncator and records
// purge runs. It implements retention.Recorder.
type Collector struct {
	config   *Config
	registry *prometheus.Registry
	purge    *PurgeMetrics
}

// NewCollector creates a collector registering its metrics in registry.
// If registry is nil, a new registry is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = DefaultSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		// Purges take from milliseconds on small shops to tens of minutes.
		cfg.DurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800}
	}

	if cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		purge:    NewPurgeMetrics(cfg, registry),
	}
}

// RegisterDB exports the connection pool statistics of db under the
// go_sql_* metrics, labelled with dbName.
func (c *Collector) RegisterDB(db *sql.DB, dbName string) error {
	return c.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Registry returns the registry the metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun records a finished purge run.
//
// Parameters:
//   - status: "success", "failure" or "dry_run"
//   - duration: wall time of the run
func (c *Collector) ObserveRun(status string, duration time.Duration) {
	c.purge.observeRun(status, duration, time.Now())
}

// AddDeleted adds rows deleted from a table.
func (c *Collector) AddDeleted(table string, rows int64) {
	c.purge.addDeleted(table, rows)
}
