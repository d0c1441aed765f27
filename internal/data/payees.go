package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/budgetsync/internal/model"
)

// Payees returns live payees.
func (db *DB) Payees(ctx context.Context) ([]model.Payee, error) {
	return db.store.Payees(ctx)
}

// Payee returns a live payee.
func (db *DB) Payee(ctx context.Context, id string) (model.Payee, error) {
	p, err := db.store.Payee(ctx, id)
	if err != nil {
		return p, notFound("payee", id, err)
	}
	if p.Tombstone {
		return p, fmt.Errorf("payee %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// InsertPayee creates a payee and returns its id.
func (db *DB) InsertPayee(ctx context.Context, p model.Payee) (string, error) {
	if p.ID == "" {
		p.ID = db.ids.NewID()
	}
	err := db.send.Update(ctx, "payees", p.ID, map[string]any{
		"name":          strings.TrimSpace(p.Name),
		"transfer_acct": nullable(p.TransferAcct),
	})
	if err != nil {
		return "", fmt.Errorf("insert payee: %w", err)
	}
	return p.ID, nil
}

// FindPayee returns the id of the live, non-transfer payee whose name
// matches after normalisation, or "" when there is none.
func (db *DB) FindPayee(ctx context.Context, name string) (string, error) {
	payees, err := db.store.Payees(ctx)
	if err != nil {
		return "", err
	}
	want := model.NormalizeName(name)
	for _, p := range payees {
		if p.TransferAcct == "" && model.NormalizeName(p.Name) == want {
			return p.ID, nil
		}
	}
	return "", nil
}

// FindOrCreatePayee returns the id of the payee with the given name,
// creating it when missing.
func (db *DB) FindOrCreatePayee(ctx context.Context, name string) (string, error) {
	id, err := db.FindPayee(ctx, name)
	if err != nil || id != "" {
		return id, err
	}
	return db.InsertPayee(ctx, model.Payee{Name: name})
}

// UpdatePayee writes the given payee columns.
func (db *DB) UpdatePayee(ctx context.Context, id string, fields map[string]any) error {
	if _, err := db.Payee(ctx, id); err != nil {
		return err
	}
	return db.send.Update(ctx, "payees", id, fields)
}

// DeletePayee tombstones a payee. Transfer payees belong to their account
// and cannot be deleted on their own.
func (db *DB) DeletePayee(ctx context.Context, id string) error {
	p, err := db.Payee(ctx, id)
	if err != nil {
		return err
	}
	if p.TransferAcct != "" {
		return fmt.Errorf("payee %q is a transfer payee", id)
	}
	return db.send.Delete(ctx, "payees", id)
}

// MergePayees folds every payee in ids into target: their transactions and
// rule conditions are repointed and the merged payees are tombstoned.
func (db *DB) MergePayees(ctx context.Context, target string, ids []string) error {
	if _, err := db.Payee(ctx, target); err != nil {
		return err
	}
	merged := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == target {
			continue
		}
		if _, err := db.Payee(ctx, id); err != nil {
			return err
		}
		merged[id] = true
	}
	if len(merged) == 0 {
		return nil
	}

	txs, err := db.store.QueryTransactions(ctx, "")
	if err != nil {
		return err
	}
	rules, err := db.store.Rules(ctx)
	if err != nil {
		return err
	}

	return db.Batch(ctx, func(ctx context.Context) error {
		for _, t := range txs {
			if merged[t.Payee] {
				if err := db.send.Update(ctx, "transactions", t.ID, map[string]any{"description": target}); err != nil {
					return err
				}
			}
		}
		for _, r := range rules {
			changed := false
			for i, c := range r.Conditions {
				if c.Field != "payee" {
					continue
				}
				if v, ok := repointPayee(c.Value, merged, target); ok {
					r.Conditions[i].Value = v
					changed = true
				}
			}
			if changed {
				if err := db.UpdateRule(ctx, r); err != nil {
					return err
				}
			}
		}
		done := make(map[string]bool, len(merged))
		for _, id := range ids {
			if !merged[id] || done[id] {
				continue
			}
			done[id] = true
			if err := db.send.Delete(ctx, "payees", id); err != nil {
				return err
			}
		}
		return nil
	})
}

// repointPayee rewrites a payee condition value (a single id or a list of
// ids) so merged ids point at target.
func repointPayee(v any, merged map[string]bool, target string) (any, bool) {
	switch val := v.(type) {
	case string:
		if merged[val] {
			return target, true
		}
	case []any:
		changed := false
		out := make([]any, 0, len(val))
		seen := make(map[string]bool)
		for _, item := range val {
			s, ok := item.(string)
			if ok && merged[s] {
				s, changed = target, true
			}
			if ok {
				if seen[s] {
					continue
				}
				seen[s] = true
				out = append(out, s)
				continue
			}
			out = append(out, item)
		}
		if changed {
			return out, true
		}
	}
	return v, false
}
