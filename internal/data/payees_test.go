package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/model"
)

func TestFindOrCreatePayee(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	a, err := db.FindOrCreatePayee(ctx, "Corner Shop")
	require.NoError(t, err)
	b, err := db.FindOrCreatePayee(ctx, " corner shop")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeletePayee_RejectsTransferPayee(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)
	tp, err := db.transferPayee(ctx, acct)
	require.NoError(t, err)

	assert.Error(t, db.DeletePayee(ctx, tp))
}

func TestMergePayees(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	acct, err := db.CreateAccount(ctx, "Checking", false, 0, 20240101)
	require.NoError(t, err)

	keep, err := db.InsertPayee(ctx, model.Payee{Name: "Grocer"})
	require.NoError(t, err)
	dupe, err := db.InsertPayee(ctx, model.Payee{Name: "GROCER LTD"})
	require.NoError(t, err)
	_, err = db.AddTransactions(ctx, acct, []model.Transaction{{Amount: -100, Date: 20240102, Payee: dupe}}, false)
	require.NoError(t, err)
	ruleID, err := db.InsertRule(ctx, model.Rule{
		Conditions: []model.Condition{{Field: "payee", Op: "oneOf", Value: []any{dupe, keep}}},
		Actions:    []model.Action{{Field: "category", Op: "set", Value: "food"}},
	})
	require.NoError(t, err)

	require.NoError(t, db.MergePayees(ctx, keep, []string{dupe, keep}))

	_, err = db.Payee(ctx, dupe)
	assert.ErrorIs(t, err, ErrNotFound)

	txs, err := db.Transactions(ctx, "acct = ?", acct)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, keep, txs[0].Payee)

	r, err := db.Rule(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, []any{keep}, r.Conditions[0].Value)
}

func TestRules_CRUD(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	id, err := db.InsertRule(ctx, model.Rule{
		Stage:      "pre",
		Conditions: []model.Condition{{Field: "imported_payee", Op: "contains", Value: "SHOP"}},
		Actions:    []model.Action{{Field: "category", Op: "set", Value: "food"}},
	})
	require.NoError(t, err)

	r, err := db.Rule(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pre", r.Stage)
	assert.Equal(t, "and", r.ConditionsOp)

	r.ConditionsOp = "or"
	require.NoError(t, db.UpdateRule(ctx, r))
	r, err = db.Rule(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "or", r.ConditionsOp)

	require.NoError(t, db.DeleteRule(ctx, id))
	_, err = db.Rule(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
