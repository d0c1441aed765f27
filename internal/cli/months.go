package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/budgetsync/internal/api"
)

// NewMonthsCommand creates the months command.
func NewMonthsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the months a budget covers",
		Long: `List every month in the budget's range, oldest first.

Example:
  budgetsync months --budget Household-0190b8e2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts, true)
			if err != nil {
				return report(rootOpts.formatter(cmd), err)
			}
			ctx := commandContext(cmd)
			defer s.close(ctx)

			months, err := s.srv.BudgetMonths(ctx)
			if err != nil {
				return s.report(err)
			}
			return s.out.Success(monthList(months))
		},
	}
}

// NewMonthCommand creates the month command.
func NewMonthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "month <YYYY-MM>",
		Short: "Show the computed budget of one month",
		Long: `Show one month's budget: money available, budgeted and to budget, and
each category's budgeted, spent and balance amounts.

Example:
  budgetsync month 2024-03 --budget Household-0190b8e2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts, true)
			if err != nil {
				return report(rootOpts.formatter(cmd), err)
			}
			ctx := commandContext(cmd)
			defer s.close(ctx)

			summary, err := s.srv.BudgetMonth(ctx, args[0])
			if err != nil {
				return s.report(err)
			}
			return s.out.Success(monthSummary(summary))
		},
	}
}

type monthList []string

func (m monthList) renderText(w io.Writer) error {
	for _, month := range m {
		if _, err := fmt.Fprintln(w, month); err != nil {
			return err
		}
	}
	return nil
}

type monthSummary api.MonthSummary

func (m monthSummary) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t\n", m.Month)
	fmt.Fprintf(tw, "Available funds\t%s\t\n", money(m.IncomeAvailable))
	fmt.Fprintf(tw, "Overspent last month\t%s\t\n", money(m.LastMonthOverspent))
	fmt.Fprintf(tw, "Budgeted\t%s\t\n", money(m.TotalBudgeted))
	fmt.Fprintf(tw, "For next month\t%s\t\n", money(-m.ForNextMonth))
	fmt.Fprintf(tw, "To budget\t%s\t\n", money(m.ToBudget))
	fmt.Fprintln(tw, "\t\t\t\t")
	fmt.Fprintln(tw, "Category\tBudgeted\tSpent\tBalance\t")
	for _, g := range m.CategoryGroups {
		if g.IsIncome {
			fmt.Fprintf(tw, "%s\t\t%s\t\t\n", g.Name, money(g.Spent))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", g.Name, money(g.Budgeted), money(g.Spent), money(g.Balance))
		for _, c := range g.Categories {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t\n", c.Name, money(c.Budgeted), money(c.Spent), money(c.Balance))
		}
	}
	return tw.Flush()
}

// money renders integer cents as a decimal amount.
func money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// parseMoney converts a decimal amount to integer cents.
func parseMoney(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}
	return cents.IntPart(), nil
}
