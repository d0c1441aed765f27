package data

import (
	"context"
	"fmt"

	"github.com/roach88/budgetsync/internal/model"
)

// budgetCellID is the zero_budgets row id for a month and category.
func budgetCellID(month, category string) string {
	return fmt.Sprintf("%d-%s", model.MonthInt(month), category)
}

// SetBudget sets the amount budgeted for a category in a YYYY-MM month.
func (db *DB) SetBudget(ctx context.Context, month, category string, amount int64) error {
	return db.send.Update(ctx, "zero_budgets", budgetCellID(month, category), map[string]any{
		"month":    model.MonthInt(month),
		"category": category,
		"amount":   amount,
	})
}

// SetCarryover sets the carryover flag of a category for each listed month.
func (db *DB) SetCarryover(ctx context.Context, months []string, category string, flag bool) error {
	return db.Batch(ctx, func(ctx context.Context) error {
		for _, m := range months {
			err := db.send.Update(ctx, "zero_budgets", budgetCellID(m, category), map[string]any{
				"month":     model.MonthInt(m),
				"category":  category,
				"carryover": flag,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SetBuffered sets the amount held back from a month for the next one.
func (db *DB) SetBuffered(ctx context.Context, month string, amount int64) error {
	return db.send.Update(ctx, "zero_budget_months", month, map[string]any{"buffered": amount})
}

// Buffered returns the amount held back from a month.
func (db *DB) Buffered(ctx context.Context, month string) (int64, error) {
	return db.store.Buffered(ctx, month)
}

// CopyPreviousMonth copies every budgeted amount of the previous month
// into month.
func (db *DB) CopyPreviousMonth(ctx context.Context, month string) error {
	prev, err := db.store.BudgetCells(ctx, model.AddMonths(month, -1))
	if err != nil {
		return err
	}
	return db.Batch(ctx, func(ctx context.Context) error {
		for _, c := range prev {
			if err := db.SetBudget(ctx, month, c.Category, c.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// ZeroBudgets sets every budgeted amount of month to zero.
func (db *DB) ZeroBudgets(ctx context.Context, month string) error {
	cells, err := db.store.BudgetCells(ctx, month)
	if err != nil {
		return err
	}
	return db.Batch(ctx, func(ctx context.Context) error {
		for _, c := range cells {
			if c.Amount == 0 {
				continue
			}
			if err := db.SetBudget(ctx, month, c.Category, 0); err != nil {
				return err
			}
		}
		return nil
	})
}
