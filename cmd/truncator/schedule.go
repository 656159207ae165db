package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ofn-hq/truncator/pkg/cli"
	"ofn-hq/truncator/pkg/config"
	"ofn-hq/truncator/pkg/retention"
	"ofn-hq/truncator/pkg/telemetry/metrics"
)

func newScheduleCmd(root *rootOptions) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run purges on the configured cron schedule",
		Long: `Run purges according to retention.schedule until SIGINT or SIGTERM.

A tick that fires while a purge is still running is skipped. When a config
file is given it is watched, and retention changes apply to the next run.
When telemetry.metrics.enabled is set, Prometheus metrics are served on
telemetry.metrics.listen_address.

Examples:
  # Daily at 3 AM
  TRUNCATOR_RETENTION_SCHEDULE="0 3 * * *" truncator schedule

  # Purge once at startup, then on schedule
  truncator schedule --config truncator.yaml --now`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, root, runNow)
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "run one purge immediately")

	return cmd
}

func runSchedule(cmd *cobra.Command, root *rootOptions, runNow bool) error {
	cfg := root.cfg
	logger := root.logger

	if cfg.Retention.Schedule == "" {
		return cli.NewUsageError("config", "retention.schedule is not set")
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	collector := metrics.NewCollector(&metrics.Config{RuntimeCollectors: true}, nil)

	sess, err := openPurger(ctx, cfg, logger, retention.WithRecorder(collector))
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	defer sess.Close()
	purger := sess.purger

	if err := collector.RegisterDB(sess.store.DB().DB, sess.store.DriverName()); err != nil {
		return cli.NewCommandError("schedule", err)
	}

	if runNow {
		if _, err := purger.Purge(ctx, retention.PurgeOptions{}); err != nil {
			logger.Error("initial truncation failed", "error", err)
		}
	}

	if err := purger.Start(ctx); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	defer purger.Stop()

	if next := purger.NextPurge(); next != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Next purge at %s\n", next.Format("2006-01-02 15:04:05 MST"))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Metrics.Enabled {
		g.Go(func() error {
			return collector.Serve(gctx, cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path, logger)
		})
	}

	if root.cfgFile != "" {
		watcher, err := config.NewWatcher(root.cfgFile, 0, logger)
		if err != nil {
			return cli.NewCommandError("schedule", err)
		}
		defer watcher.Stop()

		g.Go(func() error {
			return watcher.Watch(gctx, func(next *config.Config) error {
				return applyRetention(gctx, purger, next)
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("schedule", err)
	}

	logger.Info("shutting down")
	return nil
}

// applyRetention hands a reloaded retention section to the purger and
// restarts the scheduler when the cron expression changed.
func applyRetention(ctx context.Context, purger *retention.Purger, next *config.Config) error {
	previous := purger.Config()

	if err := purger.SetConfig(next.Retention.PurgerConfig()); err != nil {
		return err
	}
	if previous.Schedule == next.Retention.Schedule {
		return nil
	}

	purger.Stop()
	return purger.Start(ctx)
}
