package retention

import "time"

// Cutoffs holds the timestamp boundaries of one purge run. Rows strictly
// older than their boundary are eligible.
type Cutoffs struct {
	// OrderCycle bounds order cycles and tokenized permissions.
	OrderCycle time.Time `json:"order_cycle"`

	// Transient bounds state changes and log entries.
	Transient time.Time `json:"transient"`

	// Session bounds sessions.
	Session time.Time `json:"session"`
}

// For returns the cutoff that applies to a window.
func (c Cutoffs) For(w Window) time.Time {
	switch w {
	case WindowTransient:
		return c.Transient
	case WindowSession:
		return c.Session
	default:
		return c.OrderCycle
	}
}

// ComputeCutoffs derives all cutoffs of a run from the current time.
// The transient and session cutoffs are truncated to the start of their day.
func ComputeCutoffs(now time.Time, retentionMonths int, cfg *Config) Cutoffs {
	now = now.UTC()
	return Cutoffs{
		OrderCycle: CutoffFor(now, retentionMonths),
		Transient:  startOfDay(CutoffFor(now, cfg.TransientMonths)),
		Session:    startOfDay(now.AddDate(0, 0, -cfg.SessionDays)),
	}
}

// CutoffFor subtracts calendar months from now. When the resulting month is
// shorter than the current day of month the day is clamped to the month's
// last day, so 31 March minus one month is the last day of February.
func CutoffFor(now time.Time, months int) time.Time {
	now = now.UTC()
	year, month, day := now.Date()

	// Normalise on the 1st so a long month never spills into the following one.
	target := time.Date(year, month-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day,
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
