package data

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/budgetsync/internal/model"
)

// matchWindowDays bounds how far apart in time an imported row and an
// existing manual entry may be and still be treated as the same purchase.
const matchWindowDays = 7

// ImportedTransaction is one row from a bank file. PayeeName is resolved to
// a payee id during import.
type ImportedTransaction struct {
	model.Transaction
	PayeeName string
}

// ImportResult lists what an import added and which existing rows it
// updated. In a dry run the rows are what would have been written.
type ImportResult struct {
	Added   []model.Transaction
	Updated []model.Transaction
}

// ImportTransactions reconciles bank rows against an account.
//
// A row matches an existing transaction when both carry the same imported
// id, or failing that when an existing row without an imported id has the
// same amount and a date within a week. Matches are updated in place
// (imported id, imported payee, cleared flag, and blank payee, category or
// notes are filled in). Everything else is added. With dryRun set nothing
// is written and unknown payees are not created.
func (db *DB) ImportTransactions(ctx context.Context, account string, rows []ImportedTransaction, dryRun bool) (ImportResult, error) {
	if _, err := db.Account(ctx, account); err != nil {
		return ImportResult{}, err
	}
	existing, err := db.store.QueryTransactions(ctx, "acct = ? AND isChild = 0", account)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	claimed := make(map[string]bool)
	// Payees created earlier in this import are still buffered, so lookups
	// go through a local cache first.
	payees := make(map[string]string)

	apply := func(ctx context.Context) error {
		for _, in := range rows {
			payee := in.Payee
			if key := model.NormalizeName(in.PayeeName); payee == "" && key != "" {
				cached, ok := payees[key]
				if !ok {
					var err error
					if dryRun {
						cached, err = db.FindPayee(ctx, in.PayeeName)
					} else {
						cached, err = db.FindOrCreatePayee(ctx, in.PayeeName)
					}
					if err != nil {
						return err
					}
					payees[key] = cached
				}
				payee = cached
			}

			if i := matchImported(existing, claimed, in.Transaction); i >= 0 {
				cur := existing[i]
				claimed[cur.ID] = true
				next := cur
				if next.ImportedID == "" {
					next.ImportedID = in.ImportedID
				}
				if in.PayeeName != "" {
					next.ImportedPayee = in.PayeeName
				}
				next.Cleared = next.Cleared || in.Cleared
				if next.Payee == "" {
					next.Payee = payee
				}
				if next.Category == "" {
					next.Category = in.Category
				}
				if next.Notes == "" {
					next.Notes = in.Notes
				}
				fields := changedFields(cur, next)
				if len(fields) == 0 {
					continue
				}
				res.Updated = append(res.Updated, next)
				if !dryRun {
					if err := db.send.Update(ctx, "transactions", cur.ID, fields); err != nil {
						return err
					}
				}
				continue
			}

			t := in.Transaction
			t.ID = db.ids.NewID()
			t.Account = account
			t.Payee = payee
			if in.PayeeName != "" {
				t.ImportedPayee = in.PayeeName
			}
			if t.Date == 0 {
				t.Date = db.today()
			}
			res.Added = append(res.Added, t)
			if !dryRun {
				if _, err := db.insertTransaction(ctx, t); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if dryRun {
		err = apply(ctx)
	} else {
		err = db.Batch(ctx, apply)
	}
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// matchImported returns the index of the existing row that in reconciles
// with, or -1.
func matchImported(existing []model.Transaction, claimed map[string]bool, in model.Transaction) int {
	if in.ImportedID != "" {
		for i, e := range existing {
			if !claimed[e.ID] && e.ImportedID == in.ImportedID {
				return i
			}
		}
	}

	best, bestGap := -1, matchWindowDays+1
	for i, e := range existing {
		if claimed[e.ID] || e.ImportedID != "" || e.Amount != in.Amount || e.IsParent {
			continue
		}
		gap := dayGap(e.Date, in.Date)
		if gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return best
}

// dayGap is the absolute number of days between two YYYYMMDD dates.
func dayGap(a, b int) int {
	ta, errA := time.Parse("20060102", fmt.Sprintf("%08d", a))
	tb, errB := time.Parse("20060102", fmt.Sprintf("%08d", b))
	if errA != nil || errB != nil {
		return matchWindowDays + 1
	}
	d := int(ta.Sub(tb).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

