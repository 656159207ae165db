package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ofn-hq/truncator/pkg/cli"
	"ofn-hq/truncator/pkg/config"
	"ofn-hq/truncator/pkg/retention"
	"ofn-hq/truncator/pkg/store"
	"ofn-hq/truncator/pkg/telemetry/tracing"
)

type purgeOptions struct {
	months           int
	dryRun           bool
	nonTransactional bool
	format           string
	progress         bool
}

func newPurgeCmd(root *rootOptions) *cobra.Command {
	opts := &purgeOptions{}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete order cycle data older than the retention window",
		Long: `Delete every order cycle whose orders closed before the cutoff, with all
orders, line items, payments, shipments, return authorizations, inventory
units, adjustments, schedules, proxy orders, fees and exchanges belonging to
it. Tokenized permissions older than the cutoff, state changes and log
entries older than a month and sessions older than two weeks are removed too.

Examples:
  # Keep the last 3 months
  truncator purge

  # Keep the last 12 months
  truncator purge --months 12

  # Count what would be deleted without deleting anything
  truncator purge --dry-run --format json

  # Commit each statement on its own
  truncator purge --non-transactional`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(cmd, root, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.months, "months", "m", 0, "months of order cycles to keep (default from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "run every statement and roll back")
	cmd.Flags().BoolVar(&opts.nonTransactional, "non-transactional", false, "commit each statement on its own")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json, csv)")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")

	return cmd
}

func runPurge(cmd *cobra.Command, root *rootOptions, opts *purgeOptions) error {
	format, err := cli.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg := root.cfg
	if opts.nonTransactional {
		transactional := false
		cfg.Retention.Transactional = &transactional
	}

	purgeOpts := retention.PurgeOptions{DryRun: opts.dryRun}
	if cmd.Flags().Changed("months") {
		months := opts.months
		purgeOpts.RetentionMonths = &months
		if months <= 0 {
			return retention.NewConfigError("retention_months", fmt.Sprintf("must be positive, got %d", months))
		}
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	sess, err := openPurger(ctx, cfg, root.logger)
	if err != nil {
		return cli.NewCommandError("purge", err)
	}
	defer sess.Close()
	purger := sess.purger

	if opts.progress {
		progress := cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(len(purger.Plan()))
		purgeOpts.OnStep = func(done, _ int, r retention.StepResult) {
			progress.Update(done, r.Name)
		}
		defer progress.Finish()
	}

	report, err := purger.Purge(ctx, purgeOpts)
	if err != nil {
		if report != nil && !report.Transactional && len(report.Steps) > 0 {
			// The completed steps stay deleted; show them.
			_ = cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
		}
		return cli.NewCommandError("purge", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}

// purgeSession is a purger with the database and tracer it runs on.
type purgeSession struct {
	store    *store.Store
	purger   *retention.Purger
	shutdown func()
}

// Close closes the database and flushes pending spans.
func (s *purgeSession) Close() {
	s.store.Close()
	s.shutdown()
}

// openPurger connects to the configured database and builds a purger on it,
// tracing runs when telemetry.tracing is enabled.
func openPurger(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...retention.Option) (*purgeSession, error) {
	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing.TracerConfig(Version))
	if err != nil {
		return nil, err
	}
	shutdownTracer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush spans", "error", err)
		}
	}

	s, err := store.Open(ctx, cfg.Database.StoreConfig())
	if err != nil {
		shutdownTracer()
		return nil, err
	}

	opts = append([]retention.Option{
		retention.WithLogger(logger),
		retention.WithTracer(tracer.Tracer()),
	}, opts...)
	purger, err := retention.NewPurger(s, cfg.Retention.PurgerConfig(), opts...)
	if err != nil {
		s.Close()
		shutdownTracer()
		return nil, err
	}

	return &purgeSession{store: s, purger: purger, shutdown: shutdownTracer}, nil
}
