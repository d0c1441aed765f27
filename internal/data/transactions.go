package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/store"
	"github.com/roach88/budgetsync/internal/txdiff"
)

// transactionFields maps every writable transaction column.
func transactionFields(t model.Transaction) map[string]any {
	return map[string]any{
		"acct":                  nullable(t.Account),
		"category":              nullable(t.Category),
		"description":           nullable(t.Payee),
		"notes":                 nullable(t.Notes),
		"amount":                t.Amount,
		"date":                  t.Date,
		"imported_id":           nullable(t.ImportedID),
		"imported_description":  nullable(t.ImportedPayee),
		"cleared":               t.Cleared,
		"reconciled":            t.Reconciled,
		"isParent":              t.IsParent,
		"isChild":               t.IsChild,
		"parent_id":             nullable(t.ParentID),
		"starting_balance_flag": t.StartingBalance,
		"transferred_id":        nullable(t.TransferID),
		"sort_order":            t.SortOrder,
	}
}

// changedFields returns the columns whose values differ between two rows.
func changedFields(before, after model.Transaction) map[string]any {
	b, a := transactionFields(before), transactionFields(after)
	out := make(map[string]any)
	for k, v := range a {
		if b[k] != v {
			out[k] = v
		}
	}
	return out
}

func (db *DB) insertTransaction(ctx context.Context, t model.Transaction) (string, error) {
	if t.ID == "" {
		t.ID = db.ids.NewID()
	}
	if t.Date == 0 {
		t.Date = db.today()
	}
	if err := db.send.Update(ctx, "transactions", t.ID, transactionFields(t)); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return t.ID, nil
}

// Transactions returns live transactions matching a SQL filter (see
// store.QueryTransactions), grouped with split children under parents.
func (db *DB) Transactions(ctx context.Context, where string, args ...any) ([]model.Transaction, error) {
	rows, err := db.store.QueryTransactions(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	return txdiff.Group(rows), nil
}

// GroupedTransaction returns the split that contains id (the parent with
// all its children) or the plain transaction itself. Missing or deleted
// ids return an empty result and no error.
func (db *DB) GroupedTransaction(ctx context.Context, id string) ([]model.Transaction, error) {
	t, err := db.store.TransactionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.Tombstone {
		return nil, nil
	}
	if t.IsChild && t.ParentID != "" {
		parent, err := db.store.TransactionByID(ctx, t.ParentID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if err == nil && !parent.Tombstone {
			t = parent
		}
	}
	rows := []model.Transaction{t}
	if t.IsParent {
		children, err := db.store.QueryTransactions(ctx, "parent_id = ?", t.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, children...)
	}
	return txdiff.Group(rows), nil
}

// AddTransactions inserts transactions into an account and returns the ids
// of the top-level rows. Transactions may carry Subtransactions, which
// become split children inheriting the parent's account, date and cleared
// flag. With runTransfers set, a transaction whose payee is another
// account's transfer payee gets a mirrored transaction in that account.
func (db *DB) AddTransactions(ctx context.Context, account string, txs []model.Transaction, runTransfers bool) ([]string, error) {
	acct, err := db.Account(ctx, account)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = db.Batch(ctx, func(ctx context.Context) error {
		for _, t := range txs {
			t.Account = account
			if t.ID == "" {
				t.ID = db.ids.NewID()
			}
			if t.Date == 0 {
				t.Date = db.today()
			}
			subs := t.Subtransactions
			t.Subtransactions = nil
			t.IsParent = len(subs) > 0

			if runTransfers && !t.IsParent {
				if err := db.linkTransfer(ctx, acct, &t); err != nil {
					return err
				}
			}
			if _, err := db.insertTransaction(ctx, t); err != nil {
				return err
			}
			for _, sub := range subs {
				sub.Account, sub.Date, sub.Cleared = account, t.Date, t.Cleared
				sub.IsChild, sub.ParentID = true, t.ID
				if _, err := db.insertTransaction(ctx, sub); err != nil {
					return err
				}
			}
			ids = append(ids, t.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// linkTransfer inserts the mirror of t when its payee is a transfer payee
// and records the link on t.
func (db *DB) linkTransfer(ctx context.Context, from model.Account, t *model.Transaction) error {
	if t.Payee == "" || t.TransferID != "" {
		return nil
	}
	p, err := db.Payee(ctx, t.Payee)
	if err != nil {
		return err
	}
	if p.TransferAcct == "" || p.TransferAcct == from.ID {
		return nil
	}
	to, err := db.Account(ctx, p.TransferAcct)
	if err != nil {
		return err
	}
	back, err := db.transferPayee(ctx, from.ID)
	if err != nil {
		return err
	}

	// Money moving between two on-budget accounts is not spending.
	if !from.OffBudget && !to.OffBudget {
		t.Category = ""
	}
	mirror := model.Transaction{
		ID:         db.ids.NewID(),
		Account:    to.ID,
		Payee:      back,
		Notes:      t.Notes,
		Amount:     -t.Amount,
		Date:       t.Date,
		Cleared:    t.Cleared,
		TransferID: t.ID,
	}
	if from.OffBudget && !to.OffBudget {
		mirror.Category = t.Category
		t.Category = ""
	}
	t.TransferID = mirror.ID
	_, err = db.insertTransaction(ctx, mirror)
	return err
}

// ApplyDiff persists a diff: added rows are inserted, updated rows write
// only their changed columns, deleted rows are tombstoned. Transfer
// mirrors follow amount and date edits and are deleted with their
// counterpart.
func (db *DB) ApplyDiff(ctx context.Context, d txdiff.Diff) error {
	return db.Batch(ctx, func(ctx context.Context) error {
		for _, t := range d.Added {
			if _, err := db.insertTransaction(ctx, t); err != nil {
				return err
			}
		}
		for _, u := range d.Updated {
			fields := changedFields(u.Before, u.After)
			if len(fields) == 0 {
				continue
			}
			if err := db.send.Update(ctx, "transactions", u.After.ID, fields); err != nil {
				return err
			}
			if u.After.TransferID == "" {
				continue
			}
			mirror := make(map[string]any)
			if _, ok := fields["amount"]; ok {
				mirror["amount"] = -u.After.Amount
			}
			if _, ok := fields["date"]; ok {
				mirror["date"] = u.After.Date
			}
			if len(mirror) > 0 {
				if err := db.send.Update(ctx, "transactions", u.After.TransferID, mirror); err != nil {
					return err
				}
			}
		}

		deleted := make(map[string]bool, len(d.Deleted))
		for _, t := range d.Deleted {
			deleted[t.ID] = true
		}
		for _, t := range d.Deleted {
			if err := db.send.Delete(ctx, "transactions", t.ID); err != nil {
				return err
			}
			if t.TransferID != "" && !deleted[t.TransferID] {
				deleted[t.TransferID] = true
				if err := db.send.Delete(ctx, "transactions", t.TransferID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
