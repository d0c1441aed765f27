package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/query"
	"github.com/roach88/budgetsync/internal/txdiff"
)

var exportHeader = []string{"Account", "Date", "Payee", "Notes", "Category", "Amount", "Cleared", "Reconciled"}

// ExportTransactions renders the transactions matching filter as CSV.
// Split parents are replaced by their children, ids by names, and cents by
// decimal amounts.
func (s *Server) ExportTransactions(ctx context.Context, filter query.TransactionFilter) (string, error) {
	b, err := s.current()
	if err != nil {
		return "", err
	}
	where, args, err := filter.Where()
	if err != nil {
		return "", &Error{Code: ErrCodePrecondition, Message: "transactions-export: " + err.Error(), Err: err}
	}
	rows, err := b.DB.Transactions(ctx, where, args...)
	if err != nil {
		return "", err
	}

	accounts, err := b.DB.Accounts(ctx)
	if err != nil {
		return "", err
	}
	payees, err := b.DB.Payees(ctx)
	if err != nil {
		return "", err
	}
	categories, err := b.DB.Categories(ctx)
	if err != nil {
		return "", err
	}
	names := exportNames{
		accounts:   make(map[string]string, len(accounts)),
		payees:     make(map[string]string, len(payees)),
		categories: make(map[string]string, len(categories)),
	}
	for _, a := range accounts {
		names.accounts[a.ID] = a.Name
	}
	for _, c := range categories {
		names.categories[c.ID] = c.Name
	}
	for _, p := range payees {
		name := p.Name
		if p.TransferAcct != "" {
			name = "Transfer: " + names.accounts[p.TransferAcct]
		}
		names.payees[p.ID] = name
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("export transactions: %w", err)
	}
	for _, t := range txdiff.Ungroup(rows) {
		if t.IsParent {
			continue
		}
		if err := w.Write(names.record(t)); err != nil {
			return "", fmt.Errorf("export transactions: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export transactions: %w", err)
	}
	return buf.String(), nil
}

type exportNames struct {
	accounts   map[string]string
	payees     map[string]string
	categories map[string]string
}

func (n exportNames) record(t model.Transaction) []string {
	return []string{
		n.accounts[t.Account],
		model.FormatDate(t.Date),
		n.payees[t.Payee],
		t.Notes,
		n.categories[t.Category],
		decimal.New(t.Amount, -2).StringFixed(2),
		yesNo(t.Cleared),
		yesNo(t.Reconciled),
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
