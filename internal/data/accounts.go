package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/budgetsync/internal/model"
)

// StartingBalancePayee is the payee name used for opening balances.
const StartingBalancePayee = "Starting Balance"

// StartingBalanceCategory is the income category that receives opening
// balances of on-budget accounts.
const StartingBalanceCategory = "Starting Balances"

// ErrBalanceNotZero is returned when closing an account that still holds
// money without naming where it should go.
var ErrBalanceNotZero = errors.New("account balance is not zero: a transfer account is required")

// Accounts returns live accounts.
func (db *DB) Accounts(ctx context.Context) ([]model.Account, error) {
	return db.store.Accounts(ctx)
}

// Account returns a live account.
func (db *DB) Account(ctx context.Context, id string) (model.Account, error) {
	a, err := db.store.Account(ctx, id)
	if err != nil {
		return a, notFound("account", id, err)
	}
	if a.Tombstone {
		return a, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}
	return a, nil
}

// InsertAccount creates an account row and the payee that represents
// transfers into it. It returns the new account id.
func (db *DB) InsertAccount(ctx context.Context, a model.Account) (string, error) {
	if a.ID == "" {
		a.ID = db.ids.NewID()
	}
	if a.SortOrder == 0 {
		existing, err := db.store.Accounts(ctx)
		if err != nil {
			return "", err
		}
		for _, e := range existing {
			a.SortOrder = max(a.SortOrder, e.SortOrder)
		}
		a.SortOrder += sortGap
	}

	err := db.Batch(ctx, func(ctx context.Context) error {
		if err := db.send.Update(ctx, "accounts", a.ID, map[string]any{
			"name":       a.Name,
			"offbudget":  a.OffBudget,
			"closed":     a.Closed,
			"sort_order": a.SortOrder,
		}); err != nil {
			return err
		}
		return db.send.Update(ctx, "payees", db.ids.NewID(), map[string]any{
			"name":          "",
			"transfer_acct": a.ID,
		})
	})
	if err != nil {
		return "", fmt.Errorf("insert account: %w", err)
	}
	return a.ID, nil
}

// CreateAccount inserts an account and, when balance is non-zero, an opening
// balance transaction dated date. On-budget opening balances are
// categorised as income.
func (db *DB) CreateAccount(ctx context.Context, name string, offBudget bool, balance int64, date int) (string, error) {
	var id string
	err := db.Batch(ctx, func(ctx context.Context) error {
		var err error
		id, err = db.InsertAccount(ctx, model.Account{Name: name, OffBudget: offBudget})
		if err != nil {
			return err
		}
		if balance == 0 {
			return nil
		}

		payee, err := db.FindOrCreatePayee(ctx, StartingBalancePayee)
		if err != nil {
			return err
		}
		var category string
		if !offBudget {
			category, err = db.startingBalanceCategory(ctx)
			if err != nil {
				return err
			}
		}
		_, err = db.insertTransaction(ctx, model.Transaction{
			Account:         id,
			Payee:           payee,
			Category:        category,
			Amount:          balance,
			Date:            date,
			Cleared:         true,
			StartingBalance: true,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (db *DB) startingBalanceCategory(ctx context.Context) (string, error) {
	cats, err := db.store.Categories(ctx)
	if err != nil {
		return "", err
	}
	var fallback string
	for _, c := range cats {
		if !c.IsIncome {
			continue
		}
		if model.NormalizeName(c.Name) == model.NormalizeName(StartingBalanceCategory) {
			return c.ID, nil
		}
		if fallback == "" {
			fallback = c.ID
		}
	}
	return fallback, nil
}

// UpdateAccount writes the given account columns.
func (db *DB) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	if _, err := db.Account(ctx, id); err != nil {
		return err
	}
	return db.send.Update(ctx, "accounts", id, fields)
}

// CloseAccount marks an account closed.
//
// A non-zero balance must be moved out first: with transferTo set, a
// transfer of the full balance is booked into that account (categorised
// with category when money leaves the budget). With forced set, the
// account's transactions are deleted instead.
func (db *DB) CloseAccount(ctx context.Context, id, transferTo, category string, forced bool) error {
	if _, err := db.Account(ctx, id); err != nil {
		return err
	}
	balance, err := db.store.AccountBalance(ctx, id, 0)
	if err != nil {
		return err
	}

	return db.Batch(ctx, func(ctx context.Context) error {
		switch {
		case forced:
			if err := db.deleteAccountTransactions(ctx, id); err != nil {
				return err
			}
		case balance != 0 && transferTo == "":
			return ErrBalanceNotZero
		case balance != 0:
			payee, err := db.transferPayee(ctx, transferTo)
			if err != nil {
				return err
			}
			if _, err := db.AddTransactions(ctx, id, []model.Transaction{{
				Payee:    payee,
				Category: category,
				Amount:   -balance,
				Date:     db.today(),
				Notes:    "Closing account",
				Cleared:  true,
			}}, true); err != nil {
				return err
			}
		}
		return db.send.Update(ctx, "accounts", id, map[string]any{"closed": true})
	})
}

// ReopenAccount clears the closed flag.
func (db *DB) ReopenAccount(ctx context.Context, id string) error {
	return db.UpdateAccount(ctx, id, map[string]any{"closed": false})
}

// DeleteAccount tombstones an account with its transfer payee and
// transactions.
func (db *DB) DeleteAccount(ctx context.Context, id string) error {
	if _, err := db.Account(ctx, id); err != nil {
		return err
	}
	return db.Batch(ctx, func(ctx context.Context) error {
		payee, err := db.transferPayee(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if payee != "" {
			if err := db.send.Delete(ctx, "payees", payee); err != nil {
				return err
			}
		}
		if err := db.deleteAccountTransactions(ctx, id); err != nil {
			return err
		}
		return db.send.Delete(ctx, "accounts", id)
	})
}

// AccountBalance sums an account's transactions up to cutoff (YYYYMMDD,
// 0 for no limit).
func (db *DB) AccountBalance(ctx context.Context, id string, cutoff int) (int64, error) {
	if _, err := db.Account(ctx, id); err != nil {
		return 0, err
	}
	return db.store.AccountBalance(ctx, id, cutoff)
}

func (db *DB) deleteAccountTransactions(ctx context.Context, id string) error {
	rows, err := db.store.QueryTransactions(ctx, "acct = ?", id)
	if err != nil {
		return err
	}
	for _, t := range rows {
		if err := db.send.Delete(ctx, "transactions", t.ID); err != nil {
			return err
		}
	}
	return nil
}

// transferPayee returns the id of the payee that represents transfers into
// account.
func (db *DB) transferPayee(ctx context.Context, account string) (string, error) {
	payees, err := db.store.Payees(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range payees {
		if p.TransferAcct == account {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("transfer payee for account %q: %w", account, ErrNotFound)
}

// IDByName looks up a live row id by display name. Kind is one of
// accounts, payees, categories, category_groups.
func (db *DB) IDByName(ctx context.Context, kind, name string) (string, error) {
	want := model.NormalizeName(name)
	var names map[string]string
	switch kind {
	case "accounts":
		rows, err := db.store.Accounts(ctx)
		if err != nil {
			return "", err
		}
		names = make(map[string]string, len(rows))
		for _, r := range rows {
			names[r.ID] = r.Name
		}
	case "payees":
		rows, err := db.store.Payees(ctx)
		if err != nil {
			return "", err
		}
		names = make(map[string]string, len(rows))
		for _, r := range rows {
			names[r.ID] = r.Name
		}
	case "categories":
		rows, err := db.store.Categories(ctx)
		if err != nil {
			return "", err
		}
		names = make(map[string]string, len(rows))
		for _, r := range rows {
			names[r.ID] = r.Name
		}
	case "category_groups":
		rows, err := db.store.CategoryGroups(ctx)
		if err != nil {
			return "", err
		}
		names = make(map[string]string, len(rows))
		for _, r := range rows {
			names[r.ID] = r.Name
		}
	default:
		return "", fmt.Errorf("unknown kind %q", kind)
	}

	var found []string
	for id, n := range names {
		if model.NormalizeName(n) == want {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%s named %q: %w", kind, name, ErrNotFound)
	}
	// Map order is random; pick the smallest id so repeated lookups agree.
	best := found[0]
	for _, id := range found[1:] {
		best = min(best, id)
	}
	return best, nil
}
