// Package rules validates and stores transaction rules.
package rules

import (
	"context"
	"fmt"

	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/model"
)

// Service saves rules after validating them.
type Service struct {
	db *data.DB
}

// NewService creates a rule service over the budget's handlers.
func NewService(db *data.DB) *Service {
	return &Service{db: db}
}

// Create validates r and stores it under a new id. Validation problems are
// reported as Rejected, not as an error.
func (s *Service) Create(ctx context.Context, r model.Rule) (Outcome, error) {
	if errs := Validate(r); len(errs) > 0 {
		return Rejected{Errors: errs}, nil
	}
	id, err := s.db.InsertRule(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	r.ID = id
	return Saved{Rule: normalize(r)}, nil
}

// Update validates r and overwrites the stored rule with the same id.
func (s *Service) Update(ctx context.Context, r model.Rule) (Outcome, error) {
	if r.ID == "" {
		return Rejected{Errors: []ValidationError{{
			Field:   "id",
			Message: "id is required",
			Code:    ErrSchema,
		}}}, nil
	}
	if errs := Validate(r); len(errs) > 0 {
		return Rejected{Errors: errs}, nil
	}
	if err := s.db.UpdateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return Saved{Rule: normalize(r)}, nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.DeleteRule(ctx, id)
}

// All returns every live rule.
func (s *Service) All(ctx context.Context) ([]model.Rule, error) {
	return s.db.Rules(ctx)
}

// ForPayee returns the live rules with a payee condition naming payeeID.
func (s *Service) ForPayee(ctx context.Context, payeeID string) ([]model.Rule, error) {
	all, err := s.db.Rules(ctx)
	if err != nil {
		return nil, err
	}
	return ForPayee(all, payeeID), nil
}

// ForPayee filters rules to those with a payee condition naming payeeID,
// either directly or inside a oneOf list.
func ForPayee(rules []model.Rule, payeeID string) []model.Rule {
	var out []model.Rule
	for _, r := range rules {
		if mentionsPayee(r, payeeID) {
			out = append(out, r)
		}
	}
	return out
}

func mentionsPayee(r model.Rule, payeeID string) bool {
	for _, c := range r.Conditions {
		if c.Field != "payee" {
			continue
		}
		switch v := c.Value.(type) {
		case string:
			if v == payeeID {
				return true
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s == payeeID {
					return true
				}
			}
		case []string:
			for _, s := range v {
				if s == payeeID {
					return true
				}
			}
		}
	}
	return false
}

// normalize fills the defaults applied when a rule is stored.
func normalize(r model.Rule) model.Rule {
	if r.ConditionsOp == "" {
		r.ConditionsOp = "and"
	}
	return r
}
