package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"ofn-hq/truncator/pkg/retention"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human readable table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV is one row per step.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", NewUsageError("format", fmt.Sprintf("unknown format %q (must be text, json or csv)", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// TextFormatter renders reports and plans as aligned tables.
type TextFormatter struct{}

// FormatTo writes data to writer as text.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *retention.Report:
		return writeReportText(w, v)
	case []retention.StepInfo:
		return writePlanText(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func writeReportText(w io.Writer, r *retention.Report) error {
	mode := "committed"
	switch {
	case r.DryRun:
		mode = "dry run, rolled back"
	case !r.Transactional:
		mode = "per statement"
	}

	fmt.Fprintf(w, "Run:             %s\n", r.RunID)
	fmt.Fprintf(w, "Retention:       %d months (%s)\n", r.RetentionMonths, mode)
	fmt.Fprintf(w, "Cycle cutoff:    %s\n", r.Cutoffs.OrderCycle.Format(time.RFC3339))
	fmt.Fprintf(w, "Log cutoff:      %s\n", r.Cutoffs.Transient.Format(time.DateOnly))
	fmt.Fprintf(w, "Session cutoff:  %s\n\n", r.Cutoffs.Session.Format(time.DateOnly))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tTABLE\tDELETED")
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Name, s.Table, s.Deleted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d rows in %s\n", r.TotalDeleted, r.Duration.Round(time.Millisecond))
	return err
}

func writePlanText(w io.Writer, steps []retention.StepInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTEP\tTABLE\tLEVEL\tWINDOW")
	for _, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", s.Position, s.Name, s.Table, s.Level, s.Window)
	}
	return tw.Flush()
}

// CSVFormatter writes one row per step.
type CSVFormatter struct{}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	csvWriter := csv.NewWriter(w)

	switch v := data.(type) {
	case *retention.Report:
		if err := csvWriter.Write([]string{"run_id", "step", "table", "deleted"}); err != nil {
			return err
		}
		for _, s := range v.Steps {
			if err := csvWriter.Write([]string{v.RunID, s.Name, s.Table, strconv.FormatInt(s.Deleted, 10)}); err != nil {
				return err
			}
		}
	case []retention.StepInfo:
		if err := csvWriter.Write([]string{"position", "step", "table", "level", "window"}); err != nil {
			return err
		}
		for _, s := range v {
			row := []string{strconv.Itoa(s.Position), s.Name, s.Table, strconv.Itoa(s.Level), s.Window}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("csv output not supported for %T", data)
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
