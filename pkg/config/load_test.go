package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "truncator.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: "postgres://ofn@localhost:5432/openfoodnetwork?sslmode=disable"
  connect_timeout: "3s"

retention:
  months: 6
  transactional: false
  schedule: "0 3 * * *"

telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected driver %q, got %q", "postgres", cfg.Database.Driver)
	}
	if cfg.Database.ConnectTimeout != 3*time.Second {
		t.Errorf("expected connect timeout %v, got %v", 3*time.Second, cfg.Database.ConnectTimeout)
	}
	if cfg.Database.Path != "" {
		t.Errorf("expected no sqlite path for postgres, got %q", cfg.Database.Path)
	}
	if cfg.Retention.Months != 6 {
		t.Errorf("expected months 6, got %d", cfg.Retention.Months)
	}
	if cfg.Retention.TransientMonths != DefaultRetentionTransientMonths {
		t.Errorf("expected default transient months, got %d", cfg.Retention.TransientMonths)
	}
	if *cfg.Retention.Transactional {
		t.Error("expected transactional false to survive defaults")
	}
	if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
		t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "retention: [",
			wantErr: "failed to parse",
		},
		{
			name: "negative months",
			content: `
retention:
  months: -1
`,
			wantErr: "retention.months",
		},
		{
			name: "invalid schedule",
			content: `
retention:
  schedule: "every night"
`,
			wantErr: "retention.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
retention:
  months: 6
`)

	t.Setenv("TRUNCATOR_RETENTION_MONTHS", "12")
	t.Setenv("TRUNCATOR_RETENTION_TRANSACTIONAL", "false")
	t.Setenv("TRUNCATOR_DATABASE_PATH", "/var/lib/ofn/ofn.db")
	t.Setenv("TRUNCATOR_TELEMETRY_LOGGING_FORMAT", "text")
	t.Setenv("TRUNCATOR_DATABASE_BUSY_TIMEOUT", "1s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Retention.Months != 12 {
		t.Errorf("expected months 12 from env, got %d", cfg.Retention.Months)
	}
	if *cfg.Retention.Transactional {
		t.Error("expected transactional false from env")
	}
	if cfg.Database.Path != "/var/lib/ofn/ofn.db" {
		t.Errorf("expected path from env, got %q", cfg.Database.Path)
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("expected format text, got %q", cfg.Telemetry.Logging.Format)
	}
	if cfg.Database.BusyTimeout != time.Second {
		t.Errorf("expected busy timeout 1s, got %v", cfg.Database.BusyTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("TRUNCATOR_RETENTION_SESSION_DAYS", "30")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Retention.Months != DefaultRetentionMonths {
		t.Errorf("expected default months, got %d", cfg.Retention.Months)
	}
	if cfg.Retention.SessionDays != 30 {
		t.Errorf("expected session days 30, got %d", cfg.Retention.SessionDays)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric months", "TRUNCATOR_RETENTION_MONTHS", "three"},
		{"zero months", "TRUNCATOR_RETENTION_MONTHS", "0"},
		{"bad boolean", "TRUNCATOR_RETENTION_TRANSACTIONAL", "sometimes"},
		{"bad duration", "TRUNCATOR_DATABASE_BUSY_TIMEOUT", "5 seconds"},
		{"bad driver", "TRUNCATOR_DATABASE_DRIVER", "mysql"},
		{"bad sample ratio", "TRUNCATOR_TELEMETRY_TRACING_SAMPLE_RATIO", "half"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfigWithEnvOverrides("")
			if err == nil {
				t.Fatal("expected error")
			}

			var validationErr ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestPurgerConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retention.Months = 4
	cfg.Retention.Schedule = "0 2 * * 0"

	pc := cfg.Retention.PurgerConfig()
	if pc.RetentionMonths != 4 {
		t.Errorf("RetentionMonths = %d, want 4", pc.RetentionMonths)
	}
	if !pc.Transactional {
		t.Error("expected transactional by default")
	}
	if pc.Schedule != "0 2 * * 0" {
		t.Errorf("Schedule = %q, want %q", pc.Schedule, "0 2 * * 0")
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	sc := cfg.Database.StoreConfig()
	if sc.Driver != DefaultDatabaseDriver || sc.Path != DefaultDatabasePath {
		t.Errorf("StoreConfig() = %+v, want default sqlite path", sc)
	}
}

func TestTracerConfig(t *testing.T) {
	t.Setenv("TRUNCATOR_TELEMETRY_TRACING_ENABLED", "true")
	t.Setenv("TRUNCATOR_TELEMETRY_TRACING_ENDPOINT", "otel-collector:4317")
	t.Setenv("TRUNCATOR_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}

	tc := cfg.Telemetry.Tracing.TracerConfig("1.2.0")
	if !tc.Enabled || tc.Endpoint != "otel-collector:4317" {
		t.Errorf("TracerConfig() = %+v, want enabled with endpoint", tc)
	}
	if tc.SampleRatio != 0.5 {
		t.Errorf("SampleRatio = %g, want 0.5", tc.SampleRatio)
	}
	if tc.ServiceName != DefaultTracingServiceName || tc.ServiceVersion != "1.2.0" {
		t.Errorf("service = %s/%s, want %s/1.2.0", tc.ServiceName, tc.ServiceVersion, DefaultTracingServiceName)
	}
	if tc.Timeout != DefaultTracingTimeout {
		t.Errorf("Timeout = %v, want %v", tc.Timeout, DefaultTracingTimeout)
	}
}
