// Package config loads the truncator configuration.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden by TRUNCATOR_* environment variables and validated. Every
// validation problem is reported at once as a ValidationError.
//
// # Example Configuration
//
//	database:
//	  driver: postgres
//	  dsn: postgres://ofn@localhost:5432/openfoodnetwork?sslmode=disable
//
//	retention:
//	  months: 3
//	  transient_months: 1
//	  session_days: 14
//	  transactional: true
//	  schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//	    listen_address: ":9090"
//	    path: /metrics
//
// # Environment Variables
//
// Each field can be overridden with TRUNCATOR_<SECTION>_<FIELD>:
//
//	TRUNCATOR_DATABASE_DRIVER=postgres
//	TRUNCATOR_DATABASE_DSN=postgres://...
//	TRUNCATOR_RETENTION_MONTHS=6
//	TRUNCATOR_RETENTION_TRANSACTIONAL=false
//	TRUNCATOR_TELEMETRY_LOGGING_LEVEL=debug
//
// # Hot Reload
//
// Watcher reloads the file for long-running processes. A file that fails
// to load or validate is logged and the previous configuration is kept.
package config
