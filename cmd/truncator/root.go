package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ofn-hq/truncator/pkg/cli"
	"ofn-hq/truncator/pkg/config"
	"ofn-hq/truncator/pkg/telemetry/logging"
)

// rootOptions are the global flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	envFile string
	verbose bool

	// Populated by PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "truncator",
		Short: "Truncator - retention purger for order cycle data",
		Long: `Truncator deletes order cycle data older than a retention window.

Order cycles whose orders closed before the cutoff are removed with every row
that belongs to them, in an order that never violates a foreign key. Old
tokenized permissions, state changes, log entries and sessions are removed on
their own windows. By default the whole purge runs in one transaction.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (defaults and TRUNCATOR_* env vars when empty)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newPurgeCmd(opts),
		newPlanCmd(opts),
		newScheduleCmd(opts),
		newVersionCmd(),
		newCompletionCmd(),
	)

	return cmd
}

// load reads the dotenv file and the configuration and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cli.NewUsageError("env-file", err.Error())
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(o.cfgFile)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    cmd.ErrOrStderr(),
	}
	if o.verbose {
		logCfg.Level = "debug"
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	o.cfg = cfg
	o.logger = logger
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
