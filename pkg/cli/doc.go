/*
Package cli provides command-line helpers for the truncator command.

Output Formatting:

Reports and plans render as text tables, JSON or CSV:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(len(plan))
	opts.OnStep = func(done, total int, r retention.StepResult) {
		progress.Update(done, r.Name)
	}

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps configuration and flag errors to 2 and every other failure to 1.
*/
package cli
