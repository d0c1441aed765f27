package api

import (
	"context"
	"strings"

	"github.com/roach88/budgetsync/internal/budget"
)

// NewAccount is the argument of CreateAccount. InitialBalance becomes a
// starting balance transaction dated Date (today when empty).
type NewAccount struct {
	Name           string `json:"name"`
	OffBudget      bool   `json:"offbudget"`
	InitialBalance int64  `json:"initialBalance"`
	Date           string `json:"date,omitempty"`
}

// CloseAccount is the argument of CloseAccount.
type CloseAccount struct {
	ID                 string `json:"id"`
	TransferAccountID  string `json:"transferAccountId,omitempty"`
	TransferCategoryID string `json:"transferCategoryId,omitempty"`
	Forced             bool   `json:"forced,omitempty"`
}

// Accounts returns every live account.
func (s *Server) Accounts(ctx context.Context) ([]Account, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(rows))
	for _, a := range rows {
		out = append(out, accountOut(a))
	}
	return out, nil
}

// CreateAccount creates an account and returns its id.
func (s *Server) CreateAccount(ctx context.Context, a NewAccount) (string, error) {
	if strings.TrimSpace(a.Name) == "" {
		return "", preconditionf("account-create: name is required")
	}
	date, err := parseDate("date", a.Date)
	if err != nil {
		return "", err
	}
	return mutate(ctx, s, "account-create", func(ctx context.Context, b *budget.Budget) (string, error) {
		return b.DB.CreateAccount(ctx, a.Name, a.OffBudget, a.InitialBalance, date)
	})
}

// UpdateAccount applies a partial edit.
func (s *Server) UpdateAccount(ctx context.Context, id string, fields AccountFields) error {
	return mutateErr(ctx, s, "account-update", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.UpdateAccount(ctx, id, fields.columns())
	})
}

// CloseAccount closes an account, moving or deleting its balance first.
func (s *Server) CloseAccount(ctx context.Context, c CloseAccount) error {
	return mutateErr(ctx, s, "account-close", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.CloseAccount(ctx, c.ID, c.TransferAccountID, c.TransferCategoryID, c.Forced)
	})
}

// ReopenAccount reopens a closed account.
func (s *Server) ReopenAccount(ctx context.Context, id string) error {
	return mutateErr(ctx, s, "account-reopen", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.ReopenAccount(ctx, id)
	})
}

// DeleteAccount deletes an account with its transactions.
func (s *Server) DeleteAccount(ctx context.Context, id string) error {
	return mutateErr(ctx, s, "account-delete", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.DeleteAccount(ctx, id)
	})
}

// AccountBalance sums an account up to and including cutoff (YYYY-MM-DD,
// empty for all time).
func (s *Server) AccountBalance(ctx context.Context, id, cutoff string) (int64, error) {
	b, err := s.current()
	if err != nil {
		return 0, err
	}
	date, err := parseDate("cutoff", cutoff)
	if err != nil {
		return 0, err
	}
	return b.DB.AccountBalance(ctx, id, date)
}
