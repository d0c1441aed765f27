package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetMonths(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)

	months, err := f.srv.BudgetMonths(context.Background())
	require.NoError(t, err)
	require.Len(t, months, 16)
	assert.Equal(t, "2023-10", months[0])
	assert.Equal(t, "2025-01", months[len(months)-1])
}

func TestBudgetMonths_ExtendsWithOlderTransactions(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	food := f.categoryID(t, "Food")

	acct, err := f.srv.CreateAccount(ctx, NewAccount{Name: "Checking"})
	require.NoError(t, err)
	_, err = f.srv.AddTransactions(ctx, acct, []Transaction{
		{Date: "2022-01-15", Amount: -1200, Category: food},
	}, false)
	require.NoError(t, err)

	months, err := f.srv.BudgetMonths(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2021-10", months[0])
	assert.Equal(t, "2025-01", months[len(months)-1])

	require.NoError(t, f.srv.SetBudgetAmount(ctx, "2021-10", food, 500))
	got, err := f.srv.BudgetMonth(ctx, "2021-10")
	require.NoError(t, err)
	assert.Equal(t, int64(-500), got.TotalBudgeted)
}

func TestValidateMonth(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()

	tests := []struct {
		month string
		want  string
	}{
		{month: "2024-1", want: "Invalid month format, use YYYY-MM: 2024-1"},
		{month: "2024-13", want: "Invalid month format, use YYYY-MM: 2024-13"},
		{month: "", want: "Invalid month format, use YYYY-MM: "},
		{month: "2023-09", want: "No budget exists for month: 2023-09"},
		{month: "2025-02", want: "No budget exists for month: 2025-02"},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			_, err := f.srv.BudgetMonth(ctx, tt.month)
			require.Error(t, err)
			assert.True(t, IsPreconditionError(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestBudgetMonth_Summary(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	food := f.categoryID(t, "Food")

	_, err := f.srv.CreateAccount(ctx, NewAccount{Name: "Checking", InitialBalance: 100000})
	require.NoError(t, err)
	require.NoError(t, f.srv.SetBudgetAmount(ctx, "2024-01", food, 25000))

	got, err := f.srv.BudgetMonth(ctx, "2024-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01", got.Month)
	assert.Equal(t, int64(100000), got.IncomeAvailable)
	assert.Equal(t, int64(-25000), got.TotalBudgeted)
	assert.Equal(t, int64(75000), got.ToBudget)

	var found bool
	for _, g := range got.CategoryGroups {
		for _, c := range g.Categories {
			if c.ID == food {
				found = true
				assert.Equal(t, int64(25000), c.Budgeted)
				assert.Equal(t, int64(25000), c.Balance)
			}
		}
	}
	assert.True(t, found, "Food is listed")
}

func TestSetCarryover(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	b := f.budgets.Current()

	err := f.srv.SetCarryover(ctx, "2024-03", f.categoryID(t, "Income"), true)
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))
	assert.Contains(t, err.Error(), "is not an expense category")

	food := f.categoryID(t, "Food")
	require.NoError(t, f.srv.SetCarryover(ctx, "2024-03", food, true))

	for month, want := range map[string]bool{"2024-02": false, "2024-03": true, "2024-09": true, "2025-01": true} {
		v, err := b.Sheet.GetCellValue(ctx, "budget"+month[:4]+month[5:], "carryover-"+food)
		require.NoError(t, err)
		assert.Equal(t, want, v, month)
	}
}

func TestSetCarryover_MissingCategory(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()

	err := f.srv.SetCarryover(ctx, "2024-03", "missing", true)
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))
	assert.Equal(t, `budget-set-carryover: category "missing" does not exist`, err.Error())

	err = f.srv.SetCarryover(ctx, "2024-03", "", true)
	assert.Equal(t, "budget-set-carryover: category id is required", err.Error())
}

func TestHoldForNextMonth(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -100} {
		_, err := f.srv.HoldForNextMonth(ctx, "2024-01", amount)
		require.Error(t, err)
		assert.Equal(t, "Amount to hold needs to be greater than 0", err.Error())
	}

	held, err := f.srv.HoldForNextMonth(ctx, "2024-01", 30000)
	require.NoError(t, err)
	assert.False(t, held, "nothing to budget yet")

	_, err = f.srv.CreateAccount(ctx, NewAccount{Name: "Checking", InitialBalance: 100000})
	require.NoError(t, err)

	held, err = f.srv.HoldForNextMonth(ctx, "2024-01", 30000)
	require.NoError(t, err)
	assert.True(t, held)
	got, err := f.srv.BudgetMonth(ctx, "2024-01")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.ForNextMonth)
	assert.Equal(t, int64(70000), got.ToBudget)

	held, err = f.srv.HoldForNextMonth(ctx, "2024-01", 500000)
	require.NoError(t, err)
	assert.True(t, held)
	got, err = f.srv.BudgetMonth(ctx, "2024-01")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.ForNextMonth, "the hold is capped at the money available")

	require.NoError(t, f.srv.ResetHold(ctx, "2024-01"))
	got, err = f.srv.BudgetMonth(ctx, "2024-01")
	require.NoError(t, err)
	assert.Zero(t, got.ForNextMonth)
}

func TestCopyLastMonthAndSetZero(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	food := f.categoryID(t, "Food")

	require.NoError(t, f.srv.SetBudgetAmount(ctx, "2024-01", food, 12000))
	require.NoError(t, f.srv.CopyLastMonth(ctx, "2024-02"))

	feb, err := f.srv.BudgetMonth(ctx, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, int64(-12000), feb.TotalBudgeted)

	require.NoError(t, f.srv.SetZero(ctx, "2024-02"))
	feb, err = f.srv.BudgetMonth(ctx, "2024-02")
	require.NoError(t, err)
	assert.Zero(t, feb.TotalBudgeted)
}

func TestSetBudgetAmount_RequiresCategory(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)

	err := f.srv.SetBudgetAmount(context.Background(), "2024-01", "", 100)
	require.Error(t, err)
	assert.Equal(t, "budget-set-amount: category id is required", err.Error())
}
