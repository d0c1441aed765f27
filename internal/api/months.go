package api

import (
	"context"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/model"
)

// BudgetMonths lists every month of the budget's range in order.
func (s *Server) BudgetMonths(ctx context.Context) ([]string, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	bounds, err := b.Sheet.Bounds(ctx)
	if err != nil {
		return nil, err
	}
	return bounds.Months(), nil
}

// BudgetMonth returns the computed budget of one month.
func (s *Server) BudgetMonth(ctx context.Context, month string) (MonthSummary, error) {
	b, err := s.current()
	if err != nil {
		return MonthSummary{}, err
	}
	if err := s.validateMonth(ctx, b, month); err != nil {
		return MonthSummary{}, err
	}
	ms, err := b.Sheet.Month(ctx, month)
	if err != nil {
		return MonthSummary{}, err
	}
	groups, err := b.DB.CategoryGroups(ctx)
	if err != nil {
		return MonthSummary{}, err
	}

	out := MonthSummary{
		Month:              month,
		IncomeAvailable:    ms.AvailableFunds,
		LastMonthOverspent: ms.LastMonthOverspent,
		ForNextMonth:       ms.Buffered,
		TotalBudgeted:      ms.TotalBudgeted,
		ToBudget:           ms.ToBudget,
		FromLastMonth:      ms.FromLastMonth,
		TotalIncome:        ms.TotalIncome,
		TotalSpent:         ms.TotalSpent,
		TotalBalance:       ms.TotalLeftover,
		CategoryGroups:     make([]GroupSummary, 0, len(groups)),
	}
	for _, g := range groups {
		gc := ms.Groups[g.ID]
		gs := GroupSummary{
			ID:         g.ID,
			Name:       g.Name,
			IsIncome:   g.IsIncome,
			Hidden:     g.Hidden,
			Budgeted:   gc.Budgeted,
			Spent:      gc.SumAmount,
			Balance:    gc.Leftover,
			Categories: make([]CategorySummary, 0, len(g.Categories)),
		}
		for _, c := range g.Categories {
			cc := ms.Categories[c.ID]
			gs.Categories = append(gs.Categories, CategorySummary{
				ID:        c.ID,
				Name:      c.Name,
				GroupID:   c.Group,
				IsIncome:  c.IsIncome,
				Hidden:    c.Hidden,
				Budgeted:  cc.Budgeted,
				Spent:     cc.Spent,
				Balance:   cc.Leftover,
				Carryover: cc.Carryover,
			})
		}
		out.CategoryGroups = append(out.CategoryGroups, gs)
	}
	return out, nil
}

// SetBudgetAmount sets the amount budgeted for a category in a month.
func (s *Server) SetBudgetAmount(ctx context.Context, month, categoryID string, amount int64) error {
	return mutateErr(ctx, s, "budget-set-amount", func(ctx context.Context, b *budget.Budget) error {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return err
		}
		if categoryID == "" {
			return preconditionf("budget-set-amount: category id is required")
		}
		return b.DB.SetBudget(ctx, month, categoryID, amount)
	})
}

// SetCarryover sets an expense category's carryover flag from month
// through the end of the budget's range.
func (s *Server) SetCarryover(ctx context.Context, month, categoryID string, flag bool) error {
	return mutateErr(ctx, s, "budget-set-carryover", func(ctx context.Context, b *budget.Budget) error {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return err
		}
		if err := validateExpenseCategory(ctx, b, "budget-set-carryover", categoryID); err != nil {
			return err
		}
		bounds, err := b.Sheet.Bounds(ctx)
		if err != nil {
			return err
		}
		months := []string{month}
		if month < bounds.End {
			months = model.MonthRange(month, bounds.End)
		}
		return b.DB.SetCarryover(ctx, months, categoryID, flag)
	})
}

// HoldForNextMonth holds back up to amount of a month's unbudgeted money
// for the next month. Nothing is held when there is nothing to budget; the
// result reports whether a hold was set.
func (s *Server) HoldForNextMonth(ctx context.Context, month string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, preconditionf("Amount to hold needs to be greater than 0")
	}
	return mutate(ctx, s, "budget-hold-for-next-month", func(ctx context.Context, b *budget.Budget) (bool, error) {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return false, err
		}
		ms, err := b.Sheet.Month(ctx, month)
		if err != nil {
			return false, err
		}
		if ms.ToBudget <= 0 {
			return false, nil
		}
		held := max(0, min(amount, ms.ToBudget+ms.Buffered))
		return true, b.DB.SetBuffered(ctx, month, held)
	})
}

// ResetHold clears a month's hold.
func (s *Server) ResetHold(ctx context.Context, month string) error {
	return mutateErr(ctx, s, "budget-reset-hold", func(ctx context.Context, b *budget.Budget) error {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return err
		}
		return b.DB.SetBuffered(ctx, month, 0)
	})
}

// CopyLastMonth copies every budgeted amount of the previous month into
// month.
func (s *Server) CopyLastMonth(ctx context.Context, month string) error {
	return mutateErr(ctx, s, "budget-copy-last-month", func(ctx context.Context, b *budget.Budget) error {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return err
		}
		return b.DB.CopyPreviousMonth(ctx, month)
	})
}

// SetZero sets every budgeted amount of month to zero.
func (s *Server) SetZero(ctx context.Context, month string) error {
	return mutateErr(ctx, s, "budget-set-zero", func(ctx context.Context, b *budget.Budget) error {
		if err := s.validateMonth(ctx, b, month); err != nil {
			return err
		}
		return b.DB.ZeroBudgets(ctx, month)
	})
}
