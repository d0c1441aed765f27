package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, path, s.Path())
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestMeta_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	v, err := s.GetMeta(ctx, "budget-name")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMeta(ctx, "budget-name", "Household"))
	require.NoError(t, s.SetMeta(ctx, "budget-name", "Family"))

	v, err = s.GetMeta(ctx, "budget-name")
	require.NoError(t, err)
	assert.Equal(t, "Family", v)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.ApplyMessages(ctx, []Message{msg("0001", "accounts", "a1", "name", "Checking")}, true))
		return boom
	})
	require.ErrorIs(t, err, boom)

	accts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)
	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransaction_Nested(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(ctx context.Context) error {
		return s.Transaction(ctx, func(ctx context.Context) error {
			return s.ApplyMessages(ctx, []Message{msg("0001", "accounts", "a1", "name", "Checking")}, true)
		})
	})
	require.NoError(t, err)

	a, err := s.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
}

func TestAsyncTransaction_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.AsyncTransaction(ctx, func(inner context.Context) error {
		assert.True(t, s.InHeldTransaction())
		// Calls made without the inner context still join the held transaction.
		return s.ApplyMessages(ctx, []Message{msg("0001", "accounts", "a1", "name", "Checking")}, false)
	})
	require.NoError(t, err)
	assert.False(t, s.InHeldTransaction())

	a, err := s.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
}

func TestAsyncTransaction_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.AsyncTransaction(ctx, func(ctx context.Context) error {
		if err := s.ApplyMessages(ctx, []Message{msg("0001", "accounts", "a1", "name", "Checking")}, false); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Account(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAsyncTransaction_RejectsSecond(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.AsyncTransaction(ctx, func(ctx context.Context) error {
		return s.AsyncTransaction(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrTransactionActive)
}

func TestCheckpoint(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Checkpoint(context.Background()))
}

func TestExec_LeavesNoChangeLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessages(ctx, []Message{
		{Timestamp: "t1", Dataset: "category_groups", Row: "g1", Column: "name", Value: "Bills"},
	}, true))

	n, err := s.Exec(ctx, "DELETE FROM category_groups WHERE is_income = 0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	groups, err := s.CategoryGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	count, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQuery_SeesHeldTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.Exec(ctx, "INSERT INTO payees (id, name) VALUES ('p1', 'Grocer')"); err != nil {
			return err
		}
		rows, err := s.Query(ctx, "SELECT name FROM payees WHERE id = ?", "p1")
		if err != nil {
			return err
		}
		defer rows.Close()
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Grocer", name)
		return rows.Err()
	})
	require.NoError(t, err)

	_, err = s.Query(ctx, "SELECT nope FROM payees")
	assert.Error(t, err)
}
