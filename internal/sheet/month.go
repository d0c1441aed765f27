package sheet

import (
	"fmt"
	"strings"
)

// CategoryCell holds the figures of one category in one month.
type CategoryCell struct {
	Budgeted  int64
	Spent     int64
	Leftover  int64
	Carryover bool
}

// GroupCell holds the totals of one category group in one month.
type GroupCell struct {
	Budgeted  int64
	SumAmount int64
	Leftover  int64
}

// MonthSheet is the computed budget for one month.
type MonthSheet struct {
	Month              string
	AvailableFunds     int64
	LastMonthOverspent int64
	Buffered           int64
	TotalBudgeted      int64
	ToBudget           int64
	FromLastMonth      int64
	TotalIncome        int64
	TotalSpent         int64
	TotalLeftover      int64

	Categories map[string]CategoryCell
	Groups     map[string]GroupCell
}

// Cell looks up a value by cell name.
func (m *MonthSheet) Cell(name string) (any, error) {
	switch name {
	case "available-funds":
		return m.AvailableFunds, nil
	case "last-month-overspent":
		return m.LastMonthOverspent, nil
	case "buffered":
		return m.Buffered, nil
	case "total-budgeted":
		return m.TotalBudgeted, nil
	case "to-budget":
		return m.ToBudget, nil
	case "from-last-month":
		return m.FromLastMonth, nil
	case "total-income":
		return m.TotalIncome, nil
	case "total-spent":
		return m.TotalSpent, nil
	case "total-leftover":
		return m.TotalLeftover, nil
	}

	if id, ok := strings.CutPrefix(name, "group-budget-"); ok {
		return m.Groups[id].Budgeted, nil
	}
	if id, ok := strings.CutPrefix(name, "group-sum-amount-"); ok {
		return m.Groups[id].SumAmount, nil
	}
	if id, ok := strings.CutPrefix(name, "group-leftover-"); ok {
		return m.Groups[id].Leftover, nil
	}
	if id, ok := strings.CutPrefix(name, "budget-"); ok {
		return m.Categories[id].Budgeted, nil
	}
	if id, ok := strings.CutPrefix(name, "sum-amount-"); ok {
		return m.Categories[id].Spent, nil
	}
	if id, ok := strings.CutPrefix(name, "leftover-"); ok {
		return m.Categories[id].Leftover, nil
	}
	if id, ok := strings.CutPrefix(name, "carryover-"); ok {
		return m.Categories[id].Carryover, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCell, name)
}
