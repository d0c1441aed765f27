package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/budgetsync/internal/model"
)

// Rules returns live rules.
func (db *DB) Rules(ctx context.Context) ([]model.Rule, error) {
	return db.store.Rules(ctx)
}

// Rule returns a live rule.
func (db *DB) Rule(ctx context.Context, id string) (model.Rule, error) {
	r, err := db.store.Rule(ctx, id)
	if err != nil {
		return r, notFound("rule", id, err)
	}
	if r.Tombstone {
		return r, fmt.Errorf("rule %q: %w", id, ErrNotFound)
	}
	return r, nil
}

// InsertRule stores a rule and returns its id.
func (db *DB) InsertRule(ctx context.Context, r model.Rule) (string, error) {
	if r.ID == "" {
		r.ID = db.ids.NewID()
	}
	fields, err := ruleFields(r)
	if err != nil {
		return "", err
	}
	if err := db.send.Update(ctx, "rules", r.ID, fields); err != nil {
		return "", fmt.Errorf("insert rule: %w", err)
	}
	return r.ID, nil
}

// UpdateRule overwrites every column of an existing rule.
func (db *DB) UpdateRule(ctx context.Context, r model.Rule) error {
	if _, err := db.Rule(ctx, r.ID); err != nil {
		return err
	}
	fields, err := ruleFields(r)
	if err != nil {
		return err
	}
	return db.send.Update(ctx, "rules", r.ID, fields)
}

// DeleteRule tombstones a rule.
func (db *DB) DeleteRule(ctx context.Context, id string) error {
	if _, err := db.Rule(ctx, id); err != nil {
		return err
	}
	return db.send.Delete(ctx, "rules", id)
}

func ruleFields(r model.Rule) (map[string]any, error) {
	conds := r.Conditions
	if conds == nil {
		conds = []model.Condition{}
	}
	actions := r.Actions
	if actions == nil {
		actions = []model.Action{}
	}
	condJSON, err := json.Marshal(conds)
	if err != nil {
		return nil, fmt.Errorf("encode rule conditions: %w", err)
	}
	actJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("encode rule actions: %w", err)
	}
	op := r.ConditionsOp
	if op == "" {
		op = "and"
	}
	return map[string]any{
		"stage":         nullable(r.Stage),
		"conditions_op": op,
		"conditions":    string(condJSON),
		"actions":       string(actJSON),
	}, nil
}
