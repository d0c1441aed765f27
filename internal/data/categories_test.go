package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/model"
)

func TestInsertCategory_InheritsIncome(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	salary, err := db.Category(ctx, cats["Salary"])
	require.NoError(t, err)
	assert.True(t, salary.IsIncome)

	food, err := db.Category(ctx, cats["Food"])
	require.NoError(t, err)
	assert.False(t, food.IsIncome)
}

func TestInsertCategory_UnknownGroup(t *testing.T) {
	db := createTestDB(t)
	_, err := db.InsertCategory(context.Background(), model.Category{Name: "x", Group: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_TransfersTransactionsAndBudgets(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	dining, err := db.InsertCategory(ctx, model.Category{Name: "Dining", Group: cats["group:Everyday"]})
	require.NoError(t, err)
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)
	_, err = db.AddTransactions(ctx, acct, []model.Transaction{{Amount: -900, Date: 20240105, Category: dining}}, false)
	require.NoError(t, err)
	require.NoError(t, db.SetBudget(ctx, "2024-01", dining, 5000))
	require.NoError(t, db.SetBudget(ctx, "2024-01", cats["Food"], 20000))

	require.NoError(t, db.DeleteCategory(ctx, dining, cats["Food"]))

	_, err = db.Category(ctx, dining)
	assert.ErrorIs(t, err, ErrNotFound)

	txs, err := db.Transactions(ctx, "acct = ?", acct)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, cats["Food"], txs[0].Category)

	cells, err := db.Store().BudgetCells(ctx, "2024-01")
	require.NoError(t, err)
	amounts := make(map[string]int64)
	for _, c := range cells {
		amounts[c.Category] = c.Amount
	}
	assert.Equal(t, int64(25000), amounts[cats["Food"]])
	assert.Zero(t, amounts[dining])
}

func TestDeleteCategory_IncomeNeedsTransfer(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)
	_, err = db.AddTransactions(ctx, acct, []model.Transaction{{Amount: 100000, Date: 20240101, Category: cats["Salary"]}}, false)
	require.NoError(t, err)

	err = db.DeleteCategory(ctx, cats["Salary"], "")
	assert.ErrorIs(t, err, ErrTransferRequired)
}

func TestDeleteCategoryGroup(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	require.NoError(t, db.DeleteCategoryGroup(ctx, cats["group:Everyday"], ""))

	groups, err := db.CategoryGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsIncome)

	_, err = db.Category(ctx, cats["Food"])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCategory(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	require.NoError(t, db.UpdateCategory(ctx, cats["Food"], map[string]any{"name": "Groceries", "hidden": true}))
	c, err := db.Category(ctx, cats["Food"])
	require.NoError(t, err)
	assert.Equal(t, "Groceries", c.Name)
	assert.True(t, c.Hidden)

	assert.ErrorIs(t, db.UpdateCategory(ctx, "missing", map[string]any{"name": "x"}), ErrNotFound)
}
