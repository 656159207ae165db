package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retention.months").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite", "sqlite3":
		if cfg.Path == "" && cfg.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "database.path",
				Message: "path or dsn is required for sqlite",
			})
		}
	case "postgres":
		if cfg.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "database.dsn",
				Message: "dsn is required for postgres",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "database.driver",
			Message: fmt.Sprintf("invalid driver %q (must be sqlite, sqlite3 or postgres)", cfg.Driver),
		})
	}

	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "database.max_open_conns",
			Message: "must not be negative",
		})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "database.max_idle_conns",
			Message: "must not be negative",
		})
	}
	if cfg.ConnMaxLifetime < 0 {
		errs = append(errs, FieldError{
			Field:   "database.conn_max_lifetime",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Months <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.months",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Months),
		})
	}
	if cfg.TransientMonths <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.transient_months",
			Message: fmt.Sprintf("must be positive, got %d", cfg.TransientMonths),
		})
	}
	if cfg.SessionDays <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.session_days",
			Message: fmt.Sprintf("must be positive, got %d", cfg.SessionDays),
		})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "path must start with /",
			})
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("must be between 0 and 1, got %g", cfg.Tracing.SampleRatio),
		})
	}

	return errs
}
