// Package txdiff computes transaction edits as diffs.
//
// Everything here is pure: functions take the current grouped transactions
// and a requested change and return the rows to add, update and delete.
// Persisting a Diff is the caller's job.
package txdiff

import (
	"reflect"

	"github.com/roach88/budgetsync/internal/model"
)

// Fields is a partial transaction edit. Nil fields are left unchanged.
type Fields struct {
	Account    *string
	Category   *string
	Payee      *string
	Notes      *string
	Amount     *int64
	Date       *int
	Cleared    *bool
	Reconciled *bool
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f == Fields{}
}

// Apply returns t with the set fields overwritten.
func (f Fields) Apply(t model.Transaction) model.Transaction {
	if f.Account != nil {
		t.Account = *f.Account
	}
	if f.Category != nil {
		t.Category = *f.Category
	}
	if f.Payee != nil {
		t.Payee = *f.Payee
	}
	if f.Notes != nil {
		t.Notes = *f.Notes
	}
	if f.Amount != nil {
		t.Amount = *f.Amount
	}
	if f.Date != nil {
		t.Date = *f.Date
	}
	if f.Cleared != nil {
		t.Cleared = *f.Cleared
	}
	if f.Reconciled != nil {
		t.Reconciled = *f.Reconciled
	}
	return t
}

// inherited keeps only the fields a parent passes down to its children.
func (f Fields) inherited() Fields {
	return Fields{Account: f.Account, Date: f.Date, Cleared: f.Cleared}
}

// Update pairs a row with its edited version.
type Update struct {
	Before model.Transaction
	After  model.Transaction
}

// Diff is the set of row changes produced by an edit.
type Diff struct {
	Added   []model.Transaction
	Updated []Update
	Deleted []model.Transaction
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// Group nests child rows under their parents. Rows keep their input
// order; children whose parent is missing stay at the top level.
func Group(rows []model.Transaction) []model.Transaction {
	parents := make(map[string]int)
	var out []model.Transaction
	for _, r := range rows {
		if r.IsChild {
			continue
		}
		r.Subtransactions = nil
		if r.IsParent {
			parents[r.ID] = len(out)
		}
		out = append(out, r)
	}
	for _, r := range rows {
		if !r.IsChild {
			continue
		}
		if i, ok := parents[r.ParentID]; ok {
			out[i].Subtransactions = append(out[i].Subtransactions, r)
		} else {
			out = append(out, r)
		}
	}
	return out
}

// Ungroup flattens grouped transactions, each parent followed by its
// children.
func Ungroup(grouped []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, g := range grouped {
		subs := g.Subtransactions
		g.Subtransactions = nil
		out = append(out, g)
		out = append(out, subs...)
	}
	return out
}

// UpdateTransaction applies f to the row with the given id. When that row
// is a split parent, its account, date and cleared changes also apply to
// every child. Unknown ids produce an empty diff.
func UpdateTransaction(grouped []model.Transaction, id string, f Fields) Diff {
	flat := Ungroup(grouped)
	target, ok := find(flat, id)
	if !ok {
		return Diff{}
	}

	var d Diff
	if after := f.Apply(target); !sameRow(target, after) {
		d.Updated = append(d.Updated, Update{Before: target, After: after})
	}
	if target.IsParent {
		down := f.inherited()
		for _, child := range children(flat, id) {
			if after := down.Apply(child); !sameRow(child, after) {
				d.Updated = append(d.Updated, Update{Before: child, After: after})
			}
		}
	}
	return d
}

// DeleteTransaction removes the row with the given id, and its children
// when it is a split parent. Unknown ids produce an empty diff.
func DeleteTransaction(grouped []model.Transaction, id string) Diff {
	flat := Ungroup(grouped)
	target, ok := find(flat, id)
	if !ok {
		return Diff{}
	}

	d := Diff{Deleted: []model.Transaction{target}}
	if target.IsParent {
		d.Deleted = append(d.Deleted, children(flat, id)...)
	}
	return d
}

// AddTransactions returns a diff that inserts rows.
func AddTransactions(rows ...model.Transaction) Diff {
	return Diff{Added: Ungroup(rows)}
}

func find(rows []model.Transaction, id string) (model.Transaction, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return model.Transaction{}, false
}

func children(rows []model.Transaction, parentID string) []model.Transaction {
	var out []model.Transaction
	for _, r := range rows {
		if r.IsChild && r.ParentID == parentID {
			out = append(out, r)
		}
	}
	return out
}

func sameRow(a, b model.Transaction) bool {
	a.Subtransactions, b.Subtransactions = nil, nil
	return reflect.DeepEqual(a, b)
}
