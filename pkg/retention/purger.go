package retention

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config contains configuration for the retention purger.
type Config struct {
	// RetentionMonths is the number of calendar months of order cycle data to keep.
	RetentionMonths int

	// TransientMonths is the number of months of state changes and log entries to keep.
	TransientMonths int

	// SessionDays is the number of days of sessions to keep.
	SessionDays int

	// Transactional runs the whole purge inside a single transaction.
	// When false each statement commits on its own and a failure leaves
	// the deletions of earlier steps in place.
	Transactional bool

	// Schedule is a cron expression for scheduled purges.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionMonths: 3,
		TransientMonths: 1,
		SessionDays:     14,
		Transactional:   true,
		Schedule:        "",
	}
}

// Validate rejects configurations that must never reach the database.
func (c *Config) Validate() error {
	if c.RetentionMonths <= 0 {
		return NewConfigError("retention_months", fmt.Sprintf("must be positive, got %d", c.RetentionMonths))
	}
	if c.TransientMonths <= 0 {
		return NewConfigError("transient_months", fmt.Sprintf("must be positive, got %d", c.TransientMonths))
	}
	if c.SessionDays <= 0 {
		return NewConfigError("session_days", fmt.Sprintf("must be positive, got %d", c.SessionDays))
	}
	return nil
}

// Store is the relational store a purge runs against. *sqlx.DB satisfies it.
type Store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Rebind(query string) string
	DriverName() string
}

// Recorder receives run metrics. Implemented by metrics.Collector.
type Recorder interface {
	ObserveRun(status string, duration time.Duration)
	AddDeleted(table string, rows int64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Duration) {}
func (nopRecorder) AddDeleted(string, int64)         {}

// Run statuses reported to the Recorder.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDryRun  = "dry_run"
)

// Option configures a Purger.
type Option func(*Purger)

// WithLogger sets the logger. The purger adds its own component attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Purger) {
		if logger != nil {
			p.logger = logger.With("component", "retention.purger")
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Purger) {
		if r != nil {
			p.metrics = r
		}
	}
}

// WithTracer sets the tracer purge runs start their spans with.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Purger) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithClock overrides the time source used to compute cutoffs.
func WithClock(now func() time.Time) Option {
	return func(p *Purger) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPlan replaces the deletion plan and the graph it is verified against.
func WithPlan(plan Plan, graph *Graph) Option {
	return func(p *Purger) {
		p.plan = plan
		p.graph = graph
	}
}

// Purger deletes order cycle data older than the retention window.
type Purger struct {
	store     Store
	plan      Plan
	graph     *Graph
	logger    *slog.Logger
	metrics   Recorder
	tracer    trace.Tracer
	dialect   Dialect
	now       func() time.Time
	scheduler *Scheduler

	mu     sync.RWMutex
	config *Config
}

// NewPurger creates a purger. It validates the configuration and verifies the
// plan against the dependency graph before returning.
func NewPurger(store Store, config *Config, opts ...Option) (*Purger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Purger{
		store:   store,
		plan:    DefaultPlan(),
		graph:   DefaultGraph(),
		config:  config,
		logger:  slog.Default().With("component", "retention.purger"),
		metrics: nopRecorder{},
		tracer:  noop.NewTracerProvider().Tracer("retention"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := p.plan.Verify(p.graph); err != nil {
		return nil, err
	}
	if store != nil {
		p.dialect = DialectFor(store.DriverName())
	}

	p.scheduler = NewScheduler(p)

	return p, nil
}

// Config returns a copy of the current configuration.
func (p *Purger) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.config
}

// SetConfig replaces the configuration used by subsequent runs.
// An invalid configuration is rejected and the current one is kept.
func (p *Purger) SetConfig(config *Config) error {
	if config == nil {
		return NewConfigError("config", "must not be nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = config
	return nil
}

// Plan returns the deletion plan.
func (p *Purger) Plan() Plan {
	return p.plan
}

// Graph returns the dependency graph the plan was verified against.
func (p *Purger) Graph() *Graph {
	return p.graph
}

// PurgeOptions controls a single run.
type PurgeOptions struct {
	// RetentionMonths overrides Config.RetentionMonths when set.
	RetentionMonths *int

	// DryRun executes every statement inside a transaction and rolls it back.
	DryRun bool

	// OnStep is called after each statement with the number of completed
	// steps and the plan length.
	OnStep func(done, total int, result StepResult)
}

// StepResult is the outcome of one statement.
type StepResult struct {
	Name    string `json:"name"`
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
}

// Report summarises a purge run.
type Report struct {
	RunID           string        `json:"run_id"`
	RetentionMonths int           `json:"retention_months"`
	Cutoffs         Cutoffs       `json:"cutoffs"`
	Transactional   bool          `json:"transactional"`
	DryRun          bool          `json:"dry_run"`
	Steps           []StepResult  `json:"steps"`
	TotalDeleted    int64         `json:"total_deleted"`
	Duration        time.Duration `json:"duration"`
}

// DeletedFrom returns the rows deleted from a table across all steps.
func (r *Report) DeletedFrom(table string) int64 {
	var n int64
	for _, s := range r.Steps {
		if s.Table == table {
			n += s.Deleted
		}
	}
	return n
}

func (r *Report) add(step Step, deleted int64) {
	r.Steps = append(r.Steps, StepResult{Name: step.Name, Table: step.Table, Deleted: deleted})
	r.TotalDeleted += deleted
}

// Purge deletes every row owned by an order cycle that closed before the
// cutoff, followed by the independently aged tables.
//
// The run logs "truncation started" with the computed cutoffs and
// "truncation finished" on success. A failed run logs "truncation aborted"
// instead and returns the partial report with the error.
func (p *Purger) Purge(ctx context.Context, opts PurgeOptions) (*Report, error) {
	cfg := p.Config()

	months := cfg.RetentionMonths
	if opts.RetentionMonths != nil {
		months = *opts.RetentionMonths
	}
	if months <= 0 {
		return nil, NewConfigError("retention_months", fmt.Sprintf("must be positive, got %d", months))
	}

	started := time.Now()
	cutoffs := ComputeCutoffs(p.now(), months, &cfg)
	transactional := cfg.Transactional || opts.DryRun

	report := &Report{
		RunID:           uuid.NewString(),
		RetentionMonths: months,
		Cutoffs:         cutoffs,
		Transactional:   transactional,
		DryRun:          opts.DryRun,
	}

	ctx, span := p.tracer.Start(ctx, "retention.purge", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("retention.months", months),
		attribute.String("retention.cutoff", cutoffs.OrderCycle.Format(time.RFC3339)),
		attribute.Bool("retention.transactional", transactional),
		attribute.Bool("retention.dry_run", opts.DryRun),
	))
	defer span.End()

	logger := p.logger.With("run_id", report.RunID)
	logger.Info("truncation started",
		"cutoff", cutoffs.OrderCycle,
		"transient_cutoff", cutoffs.Transient,
		"session_cutoff", cutoffs.Session,
		"retention_months", months,
		"transactional", transactional,
		"dry_run", opts.DryRun,
	)

	var err error
	if transactional {
		err = p.runInTx(ctx, logger, cutoffs, report, opts)
	} else {
		err = p.runSteps(ctx, logger, p.store, cutoffs, report, opts.OnStep)
	}
	report.Duration = time.Since(started)
	span.SetAttributes(attribute.Int64("retention.total_deleted", report.TotalDeleted))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "truncation aborted")
		p.metrics.ObserveRun(StatusFailure, report.Duration)
		if !transactional {
			// Legacy mode keeps whatever was deleted before the failure.
			p.recordDeleted(report)
		}
		logger.Error("truncation aborted",
			"error", err,
			"completed_steps", len(report.Steps),
			"rolled_back", transactional,
		)
		return report, err
	}

	if opts.DryRun {
		p.metrics.ObserveRun(StatusDryRun, report.Duration)
	} else {
		p.recordDeleted(report)
		p.metrics.ObserveRun(StatusSuccess, report.Duration)
	}

	logger.Info("truncation finished",
		"total_deleted", report.TotalDeleted,
		"duration_ms", report.Duration.Milliseconds(),
		"dry_run", opts.DryRun,
	)

	return report, nil
}

// runInTx executes the plan inside one transaction, committing on success
// unless the run is a dry run.
func (p *Purger) runInTx(ctx context.Context, logger *slog.Logger, cutoffs Cutoffs, report *Report, opts PurgeOptions) error {
	tx, err := p.store.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin truncation transaction: %w", err)
	}

	if err := p.runSteps(ctx, logger, tx, cutoffs, report, opts.OnStep); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if opts.DryRun {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("failed to roll back dry run: %w", err)
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit truncation: %w", err)
	}
	return nil
}

// execer is satisfied by both the store and a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// runSteps executes every step of the plan in order and stops at the first failure.
func (p *Purger) runSteps(ctx context.Context, logger *slog.Logger, exec execer, cutoffs Cutoffs, report *Report, onStep func(int, int, StepResult)) error {
	for i, step := range p.plan {
		deleted, err := p.runStep(ctx, exec, step, cutoffs)
		if err != nil {
			return err
		}
		report.add(step, deleted)

		logger.Debug("truncation step completed",
			"step", step.Name,
			"table", step.Table,
			"deleted_count", deleted,
		)

		if onStep != nil {
			onStep(i+1, len(p.plan), report.Steps[len(report.Steps)-1])
		}
	}
	return nil
}

// runStep executes one statement in its own span and returns the rows it deleted.
func (p *Purger) runStep(ctx context.Context, exec execer, step Step, cutoffs Cutoffs) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "retention.step", trace.WithAttributes(
		attribute.String("retention.step", step.Name),
		attribute.String("db.sql.table", step.Table),
	))
	defer span.End()

	fail := func(cause error) (int64, error) {
		err := &StepError{Step: step.Name, Table: step.Table, Cause: cause}
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return 0, err
	}

	query := p.store.Rebind(p.dialect.Statement(step.SQL))
	res, err := exec.ExecContext(ctx, query, p.dialect.Bind(step.Args(cutoffs))...)
	if err != nil {
		return fail(err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int64("retention.deleted", deleted))

	return deleted, nil
}

func (p *Purger) recordDeleted(report *Report) {
	for _, s := range report.Steps {
		if s.Deleted > 0 {
			p.metrics.AddDeleted(s.Table, s.Deleted)
		}
	}
}

// Start starts the scheduled purges configured by Config.Schedule.
func (p *Purger) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the scheduler and waits for a running purge to finish.
func (p *Purger) Stop() {
	p.scheduler.Stop()
}

// NextPurge returns the time of the next scheduled purge.
func (p *Purger) NextPurge() *time.Time {
	return p.scheduler.NextRun()
}
