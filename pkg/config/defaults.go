package config

import "time"

// Default values for configuration fields.
const (
	// Database defaults
	DefaultDatabaseDriver         = "sqlite"
	DefaultDatabasePath           = "data/truncator.db"
	DefaultDatabaseMaxOpenConns   = 5
	DefaultDatabaseMaxIdleConns   = 2
	DefaultDatabaseBusyTimeout    = 5 * time.Second
	DefaultDatabaseConnectTimeout = 10 * time.Second

	// Retention defaults
	DefaultRetentionMonths          = 3
	DefaultRetentionTransientMonths = 1
	DefaultRetentionSessionDays     = 14
	DefaultRetentionTransactional   = true
	DefaultRetentionSchedule        = ""

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = false
	DefaultMetricsListenAddress = ":9090"
	DefaultMetricsPath          = "/metrics"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingServiceName   = "truncator"
	DefaultTracingTimeout       = 10 * time.Second
)

// ApplyDefaults fills zero-valued fields with their defaults.
// Fields that are already set are left untouched.
func ApplyDefaults(cfg *Config) {
	applyDatabaseDefaults(&cfg.Database)
	applyRetentionDefaults(&cfg.Retention)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultDatabaseDriver
	}
	if cfg.Path == "" && cfg.DSN == "" && cfg.Driver != "postgres" {
		cfg.Path = DefaultDatabasePath
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultDatabaseMaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultDatabaseBusyTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultDatabaseConnectTimeout
	}
}

func applyRetentionDefaults(cfg *RetentionConfig) {
	if cfg.Months == 0 {
		cfg.Months = DefaultRetentionMonths
	}
	if cfg.TransientMonths == 0 {
		cfg.TransientMonths = DefaultRetentionTransientMonths
	}
	if cfg.SessionDays == 0 {
		cfg.SessionDays = DefaultRetentionSessionDays
	}
	if cfg.Transactional == nil {
		transactional := DefaultRetentionTransactional
		cfg.Transactional = &transactional
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
}

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
