package main

import (
	"github.com/spf13/cobra"

	"ofn-hq/truncator/pkg/cli"
	"ofn-hq/truncator/pkg/retention"
)

func newPlanCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the deletion order",
		Long: `Print the statements a purge runs, in order, with the dependency level of
each table. Level 0 tables are referenced by nothing; every table is purged
after all tables that reference it. The plan is verified against the
dependency graph before it is printed. Statements are shown as the
configured database driver runs them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}

			graph := retention.DefaultGraph()
			plan := retention.DefaultPlan()
			if err := plan.Verify(graph); err != nil {
				return cli.NewCommandError("plan", err)
			}

			steps, err := plan.Describe(graph)
			if err != nil {
				return cli.NewCommandError("plan", err)
			}

			dialect := retention.DialectFor(root.cfg.Database.Driver)
			for i := range steps {
				steps[i].SQL = dialect.Statement(steps[i].SQL)
			}

			return cli.NewFormatter(f).FormatTo(cmd.OutOrStdout(), steps)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json, csv)")

	return cmd
}
