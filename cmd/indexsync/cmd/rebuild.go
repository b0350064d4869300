package cmd

import (
	"github.com/spf13/cobra"
)

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Reset the index and index every configured type",
		Long: `Drop and recreate the search index, save the mapping of every concrete
type, bulk index all of its rows and refresh the index.

Per-document failures are reported but do not fail the command unless
--strict is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := newProgress(cmd.OutOrStdout(), jsonOutput)
			report, err := a.rebuildService(out.Observe).Rebuild(ctx)
			if report != nil {
				out.Summary(report)
			}
			if err != nil {
				return err
			}

			if strict {
				return report.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any document fails to index")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print progress as JSON lines even on a terminal")

	return cmd
}
