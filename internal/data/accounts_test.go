package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount_StartingBalance(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	id, err := db.CreateAccount(ctx, "Checking", false, 150000, 20240101)
	require.NoError(t, err)

	a, err := db.Account(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
	assert.False(t, a.OffBudget)

	bal, err := db.AccountBalance(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), bal)

	txs, err := db.Transactions(ctx, "acct = ?", id)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].StartingBalance)
	assert.Equal(t, cats["Starting Balances"], txs[0].Category)

	payee, err := db.Payee(ctx, txs[0].Payee)
	require.NoError(t, err)
	assert.Equal(t, StartingBalancePayee, payee.Name)

	// The transfer payee exists.
	tp, err := db.transferPayee(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, tp)
}

func TestCreateAccount_OffBudgetHasNoCategory(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	seedCategories(t, db)

	id, err := db.CreateAccount(ctx, "House", true, 25000000, 20240101)
	require.NoError(t, err)

	txs, err := db.Transactions(ctx, "acct = ?", id)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Category)
}

func TestCreateAccount_ZeroBalanceNoTransaction(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	id, err := db.CreateAccount(ctx, "Savings", false, 0, 20240101)
	require.NoError(t, err)

	txs, err := db.Transactions(ctx, "acct = ?", id)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCloseAccount_RequiresTransfer(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	seedCategories(t, db)

	from, err := db.CreateAccount(ctx, "Old", false, 5000, 20240101)
	require.NoError(t, err)
	to, err := db.CreateAccount(ctx, "New", false, 0, 20240101)
	require.NoError(t, err)

	err = db.CloseAccount(ctx, from, "", "", false)
	require.ErrorIs(t, err, ErrBalanceNotZero)

	require.NoError(t, db.CloseAccount(ctx, from, to, "", false))

	a, err := db.Account(ctx, from)
	require.NoError(t, err)
	assert.True(t, a.Closed)

	fromBal, err := db.AccountBalance(ctx, from, 0)
	require.NoError(t, err)
	assert.Zero(t, fromBal)
	toBal, err := db.AccountBalance(ctx, to, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), toBal)

	require.NoError(t, db.ReopenAccount(ctx, from))
	a, err = db.Account(ctx, from)
	require.NoError(t, err)
	assert.False(t, a.Closed)
}

func TestCloseAccount_Forced(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	seedCategories(t, db)

	id, err := db.CreateAccount(ctx, "Old", false, 5000, 20240101)
	require.NoError(t, err)

	require.NoError(t, db.CloseAccount(ctx, id, "", "", true))
	bal, err := db.AccountBalance(ctx, id, 0)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestDeleteAccount(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	seedCategories(t, db)

	id, err := db.CreateAccount(ctx, "Gone", false, 100, 20240101)
	require.NoError(t, err)
	require.NoError(t, db.DeleteAccount(ctx, id))

	_, err = db.Account(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	txs, err := db.Transactions(ctx, "acct = ?", id)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = db.transferPayee(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIDByName(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	cats := seedCategories(t, db)

	id, err := db.IDByName(ctx, "categories", "  food ")
	require.NoError(t, err)
	assert.Equal(t, cats["Food"], id)

	_, err = db.IDByName(ctx, "categories", "Rent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.IDByName(ctx, "schedules", "x")
	assert.Error(t, err)
}
