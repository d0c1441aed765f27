package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/rules"
)

// Rules returns every live rule.
func (s *Server) Rules(ctx context.Context) ([]Rule, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := rules.NewService(b.DB).All(ctx)
	if err != nil {
		return nil, err
	}
	return rulesOut(rows), nil
}

// PayeeRules returns the rules with a payee condition naming payeeID.
func (s *Server) PayeeRules(ctx context.Context, payeeID string) ([]Rule, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := rules.NewService(b.DB).ForPayee(ctx, payeeID)
	if err != nil {
		return nil, err
	}
	return rulesOut(rows), nil
}

// CreateRule validates and stores a new rule. A rule that fails
// validation is returned as a delegated error.
func (s *Server) CreateRule(ctx context.Context, r Rule) (Rule, error) {
	return mutate(ctx, s, "rule-create", func(ctx context.Context, b *budget.Budget) (Rule, error) {
		out, err := rules.NewService(b.DB).Create(ctx, ruleIn(r))
		if err != nil {
			return Rule{}, err
		}
		return savedRule("rule-create", out)
	})
}

// UpdateRule validates and overwrites a rule. A rule that fails validation
// is returned as a delegated error.
func (s *Server) UpdateRule(ctx context.Context, r Rule) (Rule, error) {
	return mutate(ctx, s, "rule-update", func(ctx context.Context, b *budget.Budget) (Rule, error) {
		out, err := rules.NewService(b.DB).Update(ctx, ruleIn(r))
		if err != nil {
			return Rule{}, err
		}
		return savedRule("rule-update", out)
	})
}

// DeleteRule deletes a rule.
func (s *Server) DeleteRule(ctx context.Context, id string) error {
	return mutateErr(ctx, s, "rule-delete", func(ctx context.Context, b *budget.Budget) error {
		return rules.NewService(b.DB).Delete(ctx, id)
	})
}

// savedRule converts a rule outcome into the operation's result.
func savedRule(op string, out rules.Outcome) (Rule, error) {
	switch o := out.(type) {
	case rules.Saved:
		return ruleOut(o.Rule), nil
	case rules.Rejected:
		msgs := make([]string, 0, len(o.Errors))
		errs := make([]error, 0, len(o.Errors))
		for _, e := range o.Errors {
			msgs = append(msgs, e.Error())
			errs = append(errs, e)
		}
		return Rule{}, delegated(fmt.Sprintf("%s: %s", op, strings.Join(msgs, "; ")), errors.Join(errs...))
	default:
		return Rule{}, fmt.Errorf("%s: unexpected outcome %T", op, out)
	}
}

func rulesOut(rows []model.Rule) []Rule {
	out := make([]Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, ruleOut(r))
	}
	return out
}
