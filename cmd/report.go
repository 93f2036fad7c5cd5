package cmd

import (
	"github.com/spf13/cobra"
	"github.com/urizennnn/gh-activity/activity"
	"github.com/urizennnn/gh-activity/export"
	"github.com/urizennnn/gh-activity/report"
)

func newReportCmd(a *app) *cobra.Command {
	var from, to string
	var top int

	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Summarize an exported .json or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := export.ReadFile(args[0])
			if err != nil {
				return err
			}

			opts := report.Options{TopRepos: top}
			if from != "" || to != "" {
				r, err := activity.ParseBounds(from, to)
				if err != nil {
					return err
				}
				opts.Range = &r
			}
			return report.Render(a.stdout, report.Build(records, opts))
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "only count records on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "only count records on or before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&top, "top", 10, "number of repositories to list")
	return cmd
}
