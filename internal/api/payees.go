package api

import (
	"context"
	"strings"

	"github.com/roach88/budgetsync/internal/budget"
)

// Payees returns every live payee.
func (s *Server) Payees(ctx context.Context) ([]Payee, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.Payees(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Payee, 0, len(rows))
	for _, p := range rows {
		out = append(out, payeeOut(p))
	}
	return out, nil
}

// CreatePayee creates a payee and returns its id.
func (s *Server) CreatePayee(ctx context.Context, p Payee) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", preconditionf("payee-create: name is required")
	}
	return mutate(ctx, s, "payee-create", func(ctx context.Context, b *budget.Budget) (string, error) {
		return b.DB.InsertPayee(ctx, payeeIn(p))
	})
}

// UpdatePayee applies a partial edit.
func (s *Server) UpdatePayee(ctx context.Context, id string, fields PayeeFields) error {
	return mutateErr(ctx, s, "payee-update", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.UpdatePayee(ctx, id, fields.columns())
	})
}

// DeletePayee deletes a payee.
func (s *Server) DeletePayee(ctx context.Context, id string) error {
	return mutateErr(ctx, s, "payee-delete", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.DeletePayee(ctx, id)
	})
}

// MergePayees folds the payees in ids into target.
func (s *Server) MergePayees(ctx context.Context, target string, ids []string) error {
	if target == "" {
		return preconditionf("payees-merge: target id is required")
	}
	return mutateErr(ctx, s, "payees-merge", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.MergePayees(ctx, target, ids)
	})
}
