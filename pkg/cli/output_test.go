package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ofn-hq/truncator/pkg/retention"
)

func testReport() *retention.Report {
	return &retention.Report{
		RunID:           "run-1",
		RetentionMonths: 3,
		Cutoffs: retention.Cutoffs{
			OrderCycle: time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC),
			Transient:  time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
			Session:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		Transactional: true,
		Steps: []retention.StepResult{
			{Name: "orders", Table: "spree_orders", Deleted: 4},
			{Name: "order_cycles", Table: "order_cycles", Deleted: 1},
		},
		TotalDeleted: 5,
		Duration:     1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_Report(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, testReport()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"run-1",
		"3 months (committed)",
		"2026-02-15T12:00:00Z",
		"spree_orders",
		"Total: 5 rows in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatter_DryRun(t *testing.T) {
	r := testReport()
	r.DryRun = true

	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, r); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "dry run, rolled back") {
		t.Errorf("dry run not marked:\n%s", buf.String())
	}
}

func TestJSONFormatter_Report(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, testReport()); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", decoded["run_id"])
	}
	if decoded["total_deleted"] != float64(5) {
		t.Errorf("total_deleted = %v, want 5", decoded["total_deleted"])
	}
}

func TestCSVFormatter(t *testing.T) {
	plan, err := retention.DefaultPlan().Describe(retention.DefaultGraph())
	if err != nil {
		t.Fatalf("Describe() failed: %v", err)
	}

	tests := []struct {
		name     string
		data     any
		wantRows int
		header   string
	}{
		{"report", testReport(), 3, "run_id"},
		{"plan", plan, len(plan) + 1, "position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFormatter(FormatCSV).FormatTo(&buf, tt.data); err != nil {
				t.Fatalf("FormatTo() failed: %v", err)
			}

			rows, err := csv.NewReader(&buf).ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(rows), tt.wantRows)
			}
			if rows[0][0] != tt.header {
				t.Errorf("header = %q, want %q", rows[0][0], tt.header)
			}
		})
	}
}

func TestCSVFormatter_Unsupported(t *testing.T) {
	if err := NewFormatter(FormatCSV).FormatTo(&bytes.Buffer{}, 42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestTextFormatter_Plan(t *testing.T) {
	plan, err := retention.DefaultPlan().Describe(retention.DefaultGraph())
	if err != nil {
		t.Fatalf("Describe() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, plan); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(plan)+1 {
		t.Fatalf("lines = %d, want %d", len(lines), len(plan)+1)
	}
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[len(lines)-1], "sessions") {
		t.Errorf("unexpected plan table:\n%s", buf.String())
	}
}
