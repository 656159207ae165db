// Package metrics exposes Prometheus metrics for purge runs.
//
// # Usage
//
//	collector := metrics.NewCollector(&metrics.Config{}, nil)
//	purger, err := retention.NewPurger(store, cfg, retention.WithRecorder(collector))
//
//	http.Handle("/metrics", collector.Handler())
//
// Rows are only counted once they are committed: a failed transactional
// run adds nothing to truncator_purge_rows_deleted_total.
package metrics
