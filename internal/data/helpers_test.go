package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/messages"
	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/store"
	"github.com/roach88/budgetsync/internal/testutil"
)

// createTestDB opens a fresh budget file with predictable ids and a wall
// clock frozen at 2024-01-01.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "budget.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sender := messages.NewSender(st, testutil.NewDeterministicClock())
	return New(st, sender,
		WithIDGenerator(testutil.NewSequentialIDs("id")),
		WithNow(testutil.NewFrozenWall(testutil.Epoch).Now),
	)
}

// seedCategories creates an expense group with Food and an income group
// with Salary and Starting Balances. It returns the category ids by name.
func seedCategories(t *testing.T, db *DB) map[string]string {
	t.Helper()
	ctx := context.Background()

	bills, err := db.InsertCategoryGroup(ctx, model.CategoryGroup{Name: "Everyday"})
	require.NoError(t, err)
	income, err := db.InsertCategoryGroup(ctx, model.CategoryGroup{Name: "Income", IsIncome: true})
	require.NoError(t, err)

	ids := make(map[string]string)
	for _, c := range []model.Category{
		{Name: "Food", Group: bills},
		{Name: "Salary", Group: income},
		{Name: "Starting Balances", Group: income},
	} {
		id, err := db.InsertCategory(ctx, c)
		require.NoError(t, err)
		ids[c.Name] = id
	}
	ids["group:Everyday"] = bills
	ids["group:Income"] = income
	return ids
}
