package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/model"
)

func bankRow(importedID string, amount int64, date int, payee string) ImportedTransaction {
	return ImportedTransaction{
		Transaction: model.Transaction{ImportedID: importedID, Amount: amount, Date: date, Cleared: true},
		PayeeName:   payee,
	}
}

func TestImportTransactions_AddsAndCreatesPayees(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)

	res, err := db.ImportTransactions(ctx, acct, []ImportedTransaction{
		bankRow("bank-1", -1250, 20240103, "Grocer"),
		bankRow("bank-2", -450, 20240104, "grocer"),
	}, false)
	require.NoError(t, err)
	require.Len(t, res.Added, 2)
	assert.Empty(t, res.Updated)
	assert.Equal(t, res.Added[0].Payee, res.Added[1].Payee, "payee names match case-insensitively")

	txs, err := db.Transactions(ctx, "acct = ?", acct)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestImportTransactions_DryRunWritesNothing(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)

	res, err := db.ImportTransactions(ctx, acct, []ImportedTransaction{
		bankRow("bank-1", -1250, 20240103, "Grocer"),
	}, true)
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Empty(t, res.Added[0].Payee, "unknown payees are not created in a dry run")

	txs, err := db.Transactions(ctx, "acct = ?", acct)
	require.NoError(t, err)
	assert.Empty(t, txs)
	id, err := db.FindPayee(ctx, "Grocer")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestImportTransactions_ReconcilesByImportedID(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)

	_, err = db.ImportTransactions(ctx, acct, []ImportedTransaction{bankRow("bank-1", -1250, 20240103, "Grocer")}, false)
	require.NoError(t, err)

	res, err := db.ImportTransactions(ctx, acct, []ImportedTransaction{bankRow("bank-1", -1250, 20240103, "Grocer")}, false)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Updated, "identical rows change nothing")
}

func TestImportTransactions_FuzzyMatchesManualEntry(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)
	manual, err := db.AddTransactions(ctx, acct, []model.Transaction{{Amount: -1250, Date: 20240101, Notes: "weekly shop"}}, false)
	require.NoError(t, err)

	res, err := db.ImportTransactions(ctx, acct, []ImportedTransaction{
		bankRow("bank-9", -1250, 20240105, "Grocer"),
		bankRow("bank-10", -1250, 20240120, "Grocer"),
	}, false)
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, manual[0], res.Updated[0].ID)
	assert.Equal(t, "bank-9", res.Updated[0].ImportedID)
	assert.Equal(t, "weekly shop", res.Updated[0].Notes)
	require.Len(t, res.Added, 1, "a second row outside the window is new")
	assert.Equal(t, "bank-10", res.Added[0].ImportedID)
}

func TestDayGap(t *testing.T) {
	assert.Equal(t, 4, dayGap(20240101, 20240105))
	assert.Equal(t, 2, dayGap(20240301, 20240228))
	assert.Equal(t, matchWindowDays+1, dayGap(0, 20240101))
}
