package api

import (
	"context"
	"errors"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/model"
)

// validateMonth checks a YYYY-MM argument. Outside import mode the month
// must also lie within the budget's range.
func (s *Server) validateMonth(ctx context.Context, b *budget.Budget, month string) error {
	if !model.IsMonth(month) {
		return preconditionf("Invalid month format, use YYYY-MM: %s", month)
	}
	if _, err := model.ParseMonth(month); err != nil {
		return preconditionf("Invalid month format, use YYYY-MM: %s", month)
	}
	if s.Importing() {
		return nil
	}
	bounds, err := b.Sheet.Bounds(ctx)
	if err != nil {
		return err
	}
	if !bounds.Contains(month) {
		return preconditionf("No budget exists for month: %s", month)
	}
	return nil
}

// validateExpenseCategory checks that id names a live expense category.
func validateExpenseCategory(ctx context.Context, b *budget.Budget, op, id string) error {
	if id == "" {
		return preconditionf("%s: category id is required", op)
	}
	c, err := b.DB.Category(ctx, id)
	if errors.Is(err, data.ErrNotFound) {
		return preconditionf("%s: category %q does not exist", op, id)
	}
	if err != nil {
		return err
	}
	if c.IsIncome {
		return preconditionf("%s: category %q is not an expense category", op, id)
	}
	return nil
}

// parseDate converts an external YYYY-MM-DD date. Empty means unset.
func parseDate(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return 0, &Error{Code: ErrCodePrecondition, Message: field + ": " + err.Error(), Err: err}
	}
	return d, nil
}
