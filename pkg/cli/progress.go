package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress of the purge steps.
type ProgressReporter interface {
	Start(total int)
	Update(current int, label string)
	Finish()
	Error(err error)
}

// SimpleProgress is a single-line text progress bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	current int
	label   string
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start initializes the progress reporter with the number of steps.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update records that current steps are done, the last being label.
func (p *SimpleProgress) Update(current int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.label = label
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\rPurging: [%s] %5.1f%% (%d/%d) %-28s %s",
		bar, percent, p.current, p.total, p.label, time.Since(p.started).Round(time.Millisecond))
}
