package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/budgetsync/internal/query"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Filter query.TransactionFilter
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Long: `Export a budget's transactions as CSV, newest first. Split
transactions are written as their parts; amounts are decimal.

Example:
  budgetsync export --budget Household-0190b8e2 --start 2024-01-01 > jan.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions, true)
			if err != nil {
				return report(opts.formatter(cmd), err)
			}
			ctx := commandContext(cmd)
			defer s.close(ctx)

			out, err := s.srv.ExportTransactions(ctx, opts.Filter)
			if err != nil {
				return s.report(err)
			}
			return s.out.Success(csvText(out))
		},
	}

	cmd.Flags().StringVar(&opts.Filter.AccountID, "account", "", "only this account id")
	cmd.Flags().StringVar(&opts.Filter.StartDate, "start", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Filter.EndDate, "end", "", "last date (YYYY-MM-DD)")

	return cmd
}

// csvText is written verbatim in text mode.
type csvText string

func (c csvText) renderText(w io.Writer) error {
	_, err := io.WriteString(w, string(c))
	return err
}
