package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/budgetsync/internal/api"
	"github.com/roach88/budgetsync/internal/budget"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Name string
}

// importedGroup holds categories the imported budget did not start with.
const importedGroup = "Imported"

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create a budget from a transaction CSV",
		Long: `Create a new budget from a CSV in the format written by export
(Account, Date, Payee, Notes, Category, Amount, Cleared, Reconciled).

The budget is built in import mode: accounts, categories and transactions
are written in one storage transaction without change-log entries, and the
budget is uploaded once at the end. A failed import deletes the partial
budget.

Example:
  budgetsync import --name "Household" household.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name of the new budget (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return report(opts.formatter(cmd), WrapExitError(ExitCommandError, "failed to open import file", err))
	}
	defer f.Close()
	rows, err := readImportRows(f)
	if err != nil {
		return report(opts.formatter(cmd), WrapExitError(ExitCommandError, "failed to read import file", err))
	}

	s, err := openSession(cmd, opts.RootOptions, false)
	if err != nil {
		return report(opts.formatter(cmd), err)
	}
	ctx := commandContext(cmd)
	defer s.close(ctx)

	info, err := importBudget(ctx, s, opts.Name, rows)
	if err != nil {
		return s.report(err)
	}
	return s.out.Success(importSummary{Budget: info, Transactions: len(rows)})
}

// importBudget runs the import state machine over rows and returns the new
// budget. Any failure aborts the import.
func importBudget(ctx context.Context, s *session, name string, rows []importRow) (budget.Info, error) {
	if err := s.srv.StartImport(ctx, name); err != nil {
		return budget.Info{}, err
	}
	if err := loadImportRows(ctx, s.srv, rows); err != nil {
		abandonImport(ctx, s, "load", err)
		return budget.Info{}, err
	}
	if err := s.srv.FinishImport(ctx); err != nil {
		abandonImport(ctx, s, "finish", err)
		return budget.Info{}, err
	}
	info, _ := s.srv.CurrentBudget()
	return info, nil
}

// abandonImport logs a failed import and aborts it if import mode is still
// on.
func abandonImport(ctx context.Context, s *session, stage string, cause error) {
	s.logger.Error("import failed", "stage", stage, "error", cause)
	if !s.srv.Importing() {
		return
	}
	if err := s.srv.AbortImport(ctx); err != nil {
		s.logger.Error("abort import failed", "error", err)
	}
}

// loadImportRows writes rows into the budget being imported inside one
// batch.
func loadImportRows(ctx context.Context, srv *api.Server, rows []importRow) error {
	if err := srv.BatchStart(ctx); err != nil {
		return err
	}

	var accountOrder []string
	byAccount := make(map[string][]api.Transaction)
	categories := make(map[string]string)
	var groupID string

	for _, r := range rows {
		if _, ok := byAccount[r.Account]; !ok {
			accountOrder = append(accountOrder, r.Account)
		}
		tx := api.Transaction{
			Date:       r.Date,
			Amount:     r.Amount,
			PayeeName:  r.Payee,
			Notes:      r.Notes,
			Cleared:    r.Cleared,
			Reconciled: r.Reconciled,
		}
		if r.Category != "" {
			id, ok := categories[r.Category]
			if !ok {
				var err error
				id, err = srv.IDByName(ctx, "categories", r.Category)
				if api.IsPreconditionError(err) {
					if groupID == "" {
						if groupID, err = srv.CreateCategoryGroup(ctx, api.CategoryGroup{Name: importedGroup}); err != nil {
							return err
						}
					}
					id, err = srv.CreateCategory(ctx, api.Category{Name: r.Category, GroupID: groupID})
				}
				if err != nil {
					return err
				}
				categories[r.Category] = id
			}
			tx.Category = id
		}
		byAccount[r.Account] = append(byAccount[r.Account], tx)
	}

	for _, name := range accountOrder {
		id, err := srv.CreateAccount(ctx, api.NewAccount{Name: name})
		if err != nil {
			return err
		}
		if _, err := srv.ImportTransactions(ctx, id, byAccount[name], false); err != nil {
			return err
		}
	}
	return srv.BatchEnd(ctx)
}

// importRow is one line of an import file with the amount in cents.
type importRow struct {
	Account    string
	Date       string
	Payee      string
	Notes      string
	Category   string
	Amount     int64
	Cleared    bool
	Reconciled bool
}

// readImportRows parses an export-format CSV. Columns are found by header
// name; Account, Date and Amount are required.
func readImportRows(r io.Reader) ([]importRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"account", "date", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []importRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		amount, err := parseMoney(field(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := importRow{
			Account:    field(rec, "account"),
			Date:       field(rec, "date"),
			Payee:      field(rec, "payee"),
			Notes:      field(rec, "notes"),
			Category:   field(rec, "category"),
			Amount:     amount,
			Cleared:    field(rec, "cleared") == "yes",
			Reconciled: field(rec, "reconciled") == "yes",
		}
		if row.Account == "" {
			return nil, fmt.Errorf("line %d: account is empty", line)
		}
		rows = append(rows, row)
	}
}

// importSummary is the import command's result.
type importSummary struct {
	Budget       budget.Info `json:"budget"`
	Transactions int         `json:"transactions"`
}

func (s importSummary) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Imported %d transactions into %q (%s)\n", s.Transactions, s.Budget.Name, s.Budget.ID)
	return err
}
