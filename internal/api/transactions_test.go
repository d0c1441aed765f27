package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/query"
)

func createTestAccount(t *testing.T, f *fixture, name string) string {
	t.Helper()
	id, err := f.srv.CreateAccount(context.Background(), NewAccount{Name: name})
	require.NoError(t, err)
	return id
}

func findTransaction(ts []Transaction, id string) (Transaction, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

func TestAddTransactions_RoundTrip(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	acct := createTestAccount(t, f, "Checking")
	food := f.categoryID(t, "Food")

	ids, err := f.srv.AddTransactions(ctx, acct, []Transaction{
		{Date: "2024-01-05", Amount: -1250, Category: food, Notes: "lunch"},
		{Date: "2024-01-06", Amount: -3000, Subtransactions: []Transaction{
			{Amount: -1000, Category: food},
			{Amount: -2000},
		}},
	}, false)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	got, err := f.srv.Transactions(ctx, query.TransactionFilter{AccountID: acct})
	require.NoError(t, err)
	require.Len(t, got, 2)

	lunch, ok := findTransaction(got, ids[0])
	require.True(t, ok)
	assert.Equal(t, acct, lunch.Account)
	assert.Equal(t, "2024-01-05", lunch.Date)
	assert.Equal(t, int64(-1250), lunch.Amount)
	assert.Equal(t, food, lunch.Category)
	assert.Equal(t, "lunch", lunch.Notes)

	split, ok := findTransaction(got, ids[1])
	require.True(t, ok)
	assert.True(t, split.IsParent)
	require.Len(t, split.Subtransactions, 2)
	for _, sub := range split.Subtransactions {
		assert.True(t, sub.IsChild)
		assert.Equal(t, split.ID, sub.ParentID)
		assert.Equal(t, "2024-01-06", sub.Date)
	}
}

func TestAddTransactions_Validation(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()

	_, err := f.srv.AddTransactions(ctx, "", nil, false)
	assert.True(t, IsPreconditionError(err))

	acct := createTestAccount(t, f, "Checking")
	_, err = f.srv.AddTransactions(ctx, acct, []Transaction{{Date: "05/01/2024"}}, false)
	assert.True(t, IsPreconditionError(err))
}

func TestTransactions_InvalidFilter(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)

	_, err := f.srv.Transactions(context.Background(), query.TransactionFilter{StartDate: "January"})
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))
}

func TestTransactions_DateRange(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	acct := createTestAccount(t, f, "Checking")

	_, err := f.srv.AddTransactions(ctx, acct, []Transaction{
		{Date: "2024-01-05", Amount: -100},
		{Date: "2024-02-05", Amount: -200},
		{Date: "2024-03-05", Amount: -300},
	}, false)
	require.NoError(t, err)

	got, err := f.srv.Transactions(ctx, query.TransactionFilter{StartDate: "2024-02-01", EndDate: "2024-03-05"})
	require.NoError(t, err)
	var amounts []int64
	for _, tx := range got {
		amounts = append(amounts, tx.Amount)
	}
	assert.ElementsMatch(t, []int64{-200, -300}, amounts)
}

func TestUpdateTransaction_SplitParentDate(t *testing.T) {
	f := createTestServer(t, 2)
	f.createTestBudget(t)
	ctx := context.Background()
	acct := createTestAccount(t, f, "Checking")

	ids, err := f.srv.AddTransactions(ctx, acct, []Transaction{
		{Date: "2024-01-06", Amount: -3000, Subtransactions: []Transaction{
			{Amount: -1000},
			{Amount: -2000},
		}},
	}, false)
	require.NoError(t, err)
	f.drain()

	date := "2024-01-10"
	changed, err := f.srv.UpdateTransaction(ctx, ids[0], TransactionFields{Date: &date})
	require.NoError(t, err)
	require.Len(t, changed, 3)
	for _, tx := range changed {
		assert.Equal(t, "2024-01-10", tx.Date)
	}
	assert.Equal(t, [][]string{{"transactions"}}, syncTables(t, f.conns[0].Drain()))
}

func TestUpdateTransaction_EmptyDate(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	empty := ""

	_, err := f.srv.UpdateTransaction(context.Background(), "any", TransactionFields{Date: &empty})
	require.Error(t, err)
	assert.Equal(t, "date: cannot be empty", err.Error())
}

func TestUpdateAndDeleteTransaction_UnknownID(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	notes := "x"

	changed, err := f.srv.UpdateTransaction(ctx, "missing", TransactionFields{Notes: &notes})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.NotNil(t, changed)

	deleted, err := f.srv.DeleteTransaction(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.NotNil(t, deleted)
}

func TestDeleteTransaction_SplitRemovesChildren(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	acct := createTestAccount(t, f, "Checking")

	ids, err := f.srv.AddTransactions(ctx, acct, []Transaction{
		{Date: "2024-01-06", Amount: -3000, Subtransactions: []Transaction{
			{Amount: -1000},
			{Amount: -2000},
		}},
	}, false)
	require.NoError(t, err)

	deleted, err := f.srv.DeleteTransaction(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, deleted, 3)

	got, err := f.srv.Transactions(ctx, query.TransactionFilter{AccountID: acct})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportTransactions(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()
	acct := createTestAccount(t, f, "Checking")
	rows := []Transaction{
		{Date: "2024-01-03", Amount: -4500, PayeeName: "Corner Shop", ImportedID: "bank-1"},
	}

	preview, err := f.srv.ImportTransactions(ctx, acct, rows, true)
	require.NoError(t, err)
	assert.Len(t, preview.Added, 1)
	assert.Empty(t, preview.Updated)
	got, err := f.srv.Transactions(ctx, query.TransactionFilter{AccountID: acct})
	require.NoError(t, err)
	assert.Empty(t, got, "a preview writes nothing")

	res, err := f.srv.ImportTransactions(ctx, acct, rows, false)
	require.NoError(t, err)
	require.Len(t, res.Added, 1)

	again, err := f.srv.ImportTransactions(ctx, acct, rows, false)
	require.NoError(t, err)
	assert.Empty(t, again.Added, "imported ids are matched")

	got, err = f.srv.Transactions(ctx, query.TransactionFilter{AccountID: acct})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Corner Shop", got[0].ImportedPayee)
	assert.NotEmpty(t, got[0].Payee)
}
