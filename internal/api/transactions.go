package api

import (
	"context"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/query"
	"github.com/roach88/budgetsync/internal/txdiff"
)

// Transactions returns live transactions matching filter, grouped with
// split children under their parents.
func (s *Server) Transactions(ctx context.Context, filter query.TransactionFilter) ([]Transaction, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	where, args, err := filter.Where()
	if err != nil {
		return nil, &Error{Code: ErrCodePrecondition, Message: "transactions-get: " + err.Error(), Err: err}
	}
	rows, err := b.DB.Transactions(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	return transactionsOut(rows), nil
}

// AddTransactions inserts transactions into an account and returns the
// ids of the top-level rows. With runTransfers set, transfer payees create
// the mirrored transaction in the other account.
func (s *Server) AddTransactions(ctx context.Context, accountID string, txs []Transaction, runTransfers bool) ([]string, error) {
	if accountID == "" {
		return nil, preconditionf("transactions-add: account id is required")
	}
	rows, err := transactionsIn(txs)
	if err != nil {
		return nil, err
	}
	return mutate(ctx, s, "transactions-add", func(ctx context.Context, b *budget.Budget) ([]string, error) {
		ids, err := b.DB.AddTransactions(ctx, accountID, rows, runTransfers)
		if ids == nil {
			ids = []string{}
		}
		return ids, err
	})
}

// ImportTransactions reconciles bank rows against an account. PayeeName
// on a row is resolved to a payee, created if needed. With preview set
// nothing is written and the result lists what would change.
func (s *Server) ImportTransactions(ctx context.Context, accountID string, txs []Transaction, preview bool) (ImportResult, error) {
	if accountID == "" {
		return ImportResult{}, preconditionf("transactions-import: account id is required")
	}
	rows := make([]data.ImportedTransaction, 0, len(txs))
	for _, t := range txs {
		in, err := transactionIn(t)
		if err != nil {
			return ImportResult{}, err
		}
		rows = append(rows, data.ImportedTransaction{Transaction: in, PayeeName: t.PayeeName})
	}

	run := func(ctx context.Context, b *budget.Budget) (ImportResult, error) {
		res, err := b.DB.ImportTransactions(ctx, accountID, rows, preview)
		if err != nil {
			return ImportResult{}, err
		}
		return importResult(res), nil
	}
	if preview {
		b, err := s.current()
		if err != nil {
			return ImportResult{}, err
		}
		return run(ctx, b)
	}
	return mutate(ctx, s, "transactions-import", run)
}

// UpdateTransaction edits one transaction and returns every row the edit
// changed. Editing a split parent's account, date or cleared flag also
// changes its children. An unknown id changes nothing and returns an empty
// result.
func (s *Server) UpdateTransaction(ctx context.Context, id string, fields TransactionFields) ([]Transaction, error) {
	f, err := fields.edit()
	if err != nil {
		return nil, err
	}
	return mutate(ctx, s, "transaction-update", func(ctx context.Context, b *budget.Budget) ([]Transaction, error) {
		grouped, err := b.DB.GroupedTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		diff := txdiff.UpdateTransaction(grouped, id, f)
		if err := b.DB.ApplyDiff(ctx, diff); err != nil {
			return nil, err
		}
		out := make([]Transaction, 0, len(diff.Updated))
		for _, u := range diff.Updated {
			out = append(out, transactionOut(u.After))
		}
		return out, nil
	})
}

// DeleteTransaction deletes one transaction, with its children when it is
// a split parent, and returns the deleted rows. An unknown id returns an
// empty result.
func (s *Server) DeleteTransaction(ctx context.Context, id string) ([]Transaction, error) {
	return mutate(ctx, s, "transaction-delete", func(ctx context.Context, b *budget.Budget) ([]Transaction, error) {
		grouped, err := b.DB.GroupedTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		diff := txdiff.DeleteTransaction(grouped, id)
		if err := b.DB.ApplyDiff(ctx, diff); err != nil {
			return nil, err
		}
		return transactionsOut(diff.Deleted), nil
	})
}

func (f TransactionFields) edit() (txdiff.Fields, error) {
	out := txdiff.Fields{
		Account:    f.Account,
		Category:   f.Category,
		Payee:      f.Payee,
		Notes:      f.Notes,
		Amount:     f.Amount,
		Cleared:    f.Cleared,
		Reconciled: f.Reconciled,
	}
	if f.Date != nil {
		d, err := parseDate("date", *f.Date)
		if err != nil {
			return txdiff.Fields{}, err
		}
		if d == 0 {
			return txdiff.Fields{}, preconditionf("date: cannot be empty")
		}
		out.Date = &d
	}
	return out, nil
}

func transactionsIn(txs []Transaction) ([]model.Transaction, error) {
	out := make([]model.Transaction, 0, len(txs))
	for _, t := range txs {
		in, err := transactionIn(t)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func importResult(res data.ImportResult) ImportResult {
	out := ImportResult{Added: []string{}, Updated: []string{}}
	for _, t := range res.Added {
		out.Added = append(out.Added, t.ID)
	}
	for _, t := range res.Updated {
		out.Updated = append(out.Updated, t.ID)
	}
	return out
}
