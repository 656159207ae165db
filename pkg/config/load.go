package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result. Environment
// variables are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TRUNCATOR_SECTION_FIELD (e.g., TRUNCATOR_RETENTION_MONTHS) and
// always take precedence over the file.
//
// An empty path skips the file and starts from the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TRUNCATOR_* environment variables. A variable
// that cannot be parsed is an error rather than silently ignored, so a
// mistyped retention window never falls back to a default.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
	integer := func(name, field string, dst *int) {
		if val := os.Getenv(name); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s: not an integer: %q", name, val)})
				return
			}
			*dst = i
		}
	}
	duration := func(name, field string, dst *time.Duration) {
		if val := os.Getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s: not a duration: %q", name, val)})
				return
			}
			*dst = d
		}
	}
	boolean := func(name, field string, set func(bool)) {
		if val := os.Getenv(name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s: not a boolean: %q", name, val)})
				return
			}
			set(b)
		}
	}

	// Database overrides
	str("TRUNCATOR_DATABASE_DRIVER", &cfg.Database.Driver)
	str("TRUNCATOR_DATABASE_DSN", &cfg.Database.DSN)
	str("TRUNCATOR_DATABASE_PATH", &cfg.Database.Path)
	integer("TRUNCATOR_DATABASE_MAX_OPEN_CONNS", "database.max_open_conns", &cfg.Database.MaxOpenConns)
	integer("TRUNCATOR_DATABASE_MAX_IDLE_CONNS", "database.max_idle_conns", &cfg.Database.MaxIdleConns)
	duration("TRUNCATOR_DATABASE_BUSY_TIMEOUT", "database.busy_timeout", &cfg.Database.BusyTimeout)
	duration("TRUNCATOR_DATABASE_CONNECT_TIMEOUT", "database.connect_timeout", &cfg.Database.ConnectTimeout)

	// Retention overrides
	integer("TRUNCATOR_RETENTION_MONTHS", "retention.months", &cfg.Retention.Months)
	integer("TRUNCATOR_RETENTION_TRANSIENT_MONTHS", "retention.transient_months", &cfg.Retention.TransientMonths)
	integer("TRUNCATOR_RETENTION_SESSION_DAYS", "retention.session_days", &cfg.Retention.SessionDays)
	boolean("TRUNCATOR_RETENTION_TRANSACTIONAL", "retention.transactional", func(b bool) {
		cfg.Retention.Transactional = &b
	})
	str("TRUNCATOR_RETENTION_SCHEDULE", &cfg.Retention.Schedule)

	// Telemetry overrides
	str("TRUNCATOR_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TRUNCATOR_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TRUNCATOR_TELEMETRY_METRICS_ENABLED", "telemetry.metrics.enabled", func(b bool) {
		cfg.Telemetry.Metrics.Enabled = b
	})
	str("TRUNCATOR_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	str("TRUNCATOR_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	boolean("TRUNCATOR_TELEMETRY_TRACING_ENABLED", "telemetry.tracing.enabled", func(b bool) {
		cfg.Telemetry.Tracing.Enabled = b
	})
	str("TRUNCATOR_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	boolean("TRUNCATOR_TELEMETRY_TRACING_INSECURE", "telemetry.tracing.insecure", func(b bool) {
		cfg.Telemetry.Tracing.Insecure = b
	})
	if val := os.Getenv("TRUNCATOR_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		ratio, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("TRUNCATOR_TELEMETRY_TRACING_SAMPLE_RATIO: not a number: %q", val),
			})
		} else {
			cfg.Telemetry.Tracing.SampleRatio = ratio
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment override: %w", ValidationError{Errors: errs})
	}
	return nil
}
