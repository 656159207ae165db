package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Setenv("TRUNCATOR_RETENTION_SESSION_DAYS", "30")

	path := writeConfig(t, `
retention:
  months: 3
`)

	w, err := NewWatcher(path, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Watch(ctx, func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// An invalid file is skipped.
	if err := os.WriteFile(path, []byte("retention:\n  months: -1\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := os.WriteFile(path, []byte("retention:\n  months: 9\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Retention.Months != 9 {
			t.Errorf("reloaded months = %d, want 9", cfg.Retention.Months)
		}
		if cfg.Retention.SessionDays != 30 {
			t.Errorf("reloaded session days = %d, want 30 from the environment", cfg.Retention.SessionDays)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	if _, err := NewWatcher("", 0, nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}
