package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMessages_UpsertsColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessages(ctx, []Message{
		msg("0001", "accounts", "a1", "name", "Checking"),
		msg("0002", "accounts", "a1", "offbudget", true),
		msg("0003", "accounts", "a1", "sort_order", 16384.0),
	}, true))

	a, err := s.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
	assert.True(t, a.OffBudget)
	assert.False(t, a.Closed)
	assert.Equal(t, 16384.0, a.SortOrder)
}

func TestApplyMessages_RejectsUnknownColumn(t *testing.T) {
	s := createTestStore(t)

	err := s.ApplyMessages(context.Background(), []Message{
		msg("0001", "accounts", "a1", "name; DROP TABLE accounts", "x"),
	}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")

	err = s.ApplyMessages(context.Background(), []Message{
		msg("0001", "sqlite_master", "a1", "name", "x"),
	}, true)
	require.Error(t, err)
}

func TestApplyMessages_WithoutRecordSkipsLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessages(ctx, []Message{msg("0001", "payees", "p1", "name", "Grocer")}, false))

	p, err := s.Payee(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Grocer", p.Name)

	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyMessages_LastWriterWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessages(ctx, []Message{msg("0005", "payees", "p1", "name", "Newer")}, true))
	require.NoError(t, s.ApplyMessages(ctx, []Message{msg("0002", "payees", "p1", "name", "Older")}, true))

	p, err := s.Payee(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Newer", p.Name)

	// The older write is still logged.
	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDatasetsSince(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessages(ctx, []Message{
		msg("0001", "accounts", "a1", "name", "Checking"),
		msg("0002", "payees", "p1", "name", "Grocer"),
		msg("0003", "transactions", "t1", "amount", int64(-500)),
		msg("0004", "payees", "p2", "name", "Cafe"),
	}, true))

	all, err := s.DatasetsSince(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "payees", "transactions"}, all)

	later, err := s.DatasetsSince(ctx, msg("0002", "", "", "", nil).Timestamp)
	require.NoError(t, err)
	assert.Equal(t, []string{"payees", "transactions"}, later)

	none, err := s.DatasetsSince(ctx, msg("0004", "", "", "", nil).Timestamp)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLastTimestampAndMessagesSince(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	last, err := s.LastTimestamp(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)

	require.NoError(t, s.ApplyMessages(ctx, []Message{
		msg("0001", "accounts", "a1", "name", "Checking"),
		msg("0002", "accounts", "a1", "closed", true),
		msg("0003", "categories", "c1", "cat_group", nil),
	}, true))

	last, err = s.LastTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg("0003", "", "", "", nil).Timestamp, last)

	msgs, err := s.MessagesSince(ctx, "")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Checking", msgs[0].Value)
	assert.Equal(t, int64(1), msgs[1].Value)
	assert.Nil(t, msgs[2].Value)
}
