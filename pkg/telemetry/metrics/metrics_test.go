package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	_ "modernc.org/sqlite"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(&Config{Namespace: "test"}, prometheus.NewRegistry())
}

func TestNewCollector_Defaults(t *testing.T) {
	cfg := &Config{}
	registry := prometheus.NewRegistry()
	c := NewCollector(cfg, registry)

	if c.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if cfg.Namespace != DefaultNamespace || cfg.Subsystem != DefaultSubsystem {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.DurationBuckets) == 0 {
		t.Error("expected default duration buckets")
	}
}

func TestCollector_ObserveRun(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveRun("success", 2*time.Second)
	c.ObserveRun("success", time.Second)
	c.ObserveRun("failure", 10*time.Millisecond)

	if got := testutil.ToFloat64(c.purge.runsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.purge.runsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.purge.lastSuccessAt); got == 0 {
		t.Error("last success timestamp not set")
	}
	if got := testutil.CollectAndCount(c.purge.runDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestCollector_FailureDoesNotSetLastSuccess(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveRun("failure", time.Second)
	c.ObserveRun("dry_run", time.Second)

	if got := testutil.ToFloat64(c.purge.lastSuccessAt); got != 0 {
		t.Errorf("last success timestamp = %v, want 0", got)
	}
}

func TestCollector_AddDeleted(t *testing.T) {
	c := newTestCollector(t)

	c.AddDeleted("spree_orders", 5)
	c.AddDeleted("spree_orders", 3)
	c.AddDeleted("sessions", 0)

	if got := testutil.ToFloat64(c.purge.rowsDeleted.WithLabelValues("spree_orders")); got != 8 {
		t.Errorf("spree_orders deleted = %v, want 8", got)
	}
	if got := testutil.CollectAndCount(c.purge.rowsDeleted); got != 1 {
		t.Errorf("rows_deleted series = %d, want 1 (zero counts are skipped)", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveRun("success", time.Second)
	c.AddDeleted("order_cycles", 2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`test_purge_runs_total{status="success"} 1`,
		`test_purge_rows_deleted_total{table="order_cycles"} 2`,
		"test_purge_last_success_timestamp_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollector_Serve(t *testing.T) {
	c := newTestCollector(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Serve(ctx, "127.0.0.1:0", "/metrics", nil)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestCollector_RuntimeCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewCollector(&Config{RuntimeCollectors: true}, registry)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected go runtime metrics")
	}
}

func TestCollector_RegisterDB(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	c := NewCollector(nil, nil)
	if err := c.RegisterDB(db, "sqlite"); err != nil {
		t.Fatalf("RegisterDB() failed: %v", err)
	}

	want := `
# HELP go_sql_max_open_connections Maximum number of open connections to the database.
# TYPE go_sql_max_open_connections gauge
go_sql_max_open_connections{db_name="sqlite"} 1
`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(want), "go_sql_max_open_connections"); err != nil {
		t.Errorf("unexpected pool metrics: %v", err)
	}

	if err := c.RegisterDB(db, "sqlite"); err == nil {
		t.Error("expected error registering the same database twice")
	}
}
