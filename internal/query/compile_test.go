package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name   string
		pred   Predicate
		sql    string
		params []any
	}{
		{"nil", nil, "", nil},
		{"equals", Equals{Field: "account", Value: "a1"}, "acct = ?", []any{"a1"}},
		{"equals null", Equals{Field: "category", Value: nil}, "category IS NULL", nil},
		{"equals bool", Equals{Field: "cleared", Value: true}, "cleared = ?", []any{1}},
		{"compare", Compare{Field: "amount", Op: OpLt, Value: int64(0)}, "amount < ?", []any{int64(0)}},
		{"in", In{Field: "payee", Values: []any{"p1", "p2"}}, "description IN (?, ?)", []any{"p1", "p2"}},
		{"empty in", In{Field: "payee"}, "0 = 1", nil},
		{"empty and", And{}, "1 = 1", nil},
		{
			"and",
			And{Predicates: []Predicate{
				Equals{Field: "account", Value: "a1"},
				Compare{Field: "date", Op: OpGte, Value: 20240101},
				Compare{Field: "date", Op: OpLte, Value: 20240131},
			}},
			"acct = ? AND date >= ? AND date <= ?",
			[]any{"a1", 20240101, 20240131},
		},
		{
			"nested and",
			And{Predicates: []Predicate{
				Equals{Field: "notes", Value: "x"},
				And{Predicates: []Predicate{Equals{Field: "reconciled", Value: false}}},
			}},
			"notes = ? AND (reconciled = ?)",
			[]any{"x", 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want string
	}{
		{"unknown field", Equals{Field: "tombstone", Value: 1}, `unknown field "tombstone"`},
		{"bad op", Compare{Field: "amount", Op: "LIKE", Value: "x"}, "unsupported operator"},
		{"compare nil", Compare{Field: "amount", Op: OpGt}, "needs a value"},
		{"nested error", And{Predicates: []Predicate{In{Field: "nope"}}}, `unknown field "nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.pred)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTransactionFilter(t *testing.T) {
	sql, params, err := TransactionFilter{}.Where()
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Empty(t, params)

	sql, params, err = TransactionFilter{AccountID: "a1", StartDate: "2024-01-01", EndDate: "2024-01-31"}.Where()
	require.NoError(t, err)
	assert.Equal(t, "acct = ? AND date >= ? AND date <= ?", sql)
	assert.Equal(t, []any{"a1", 20240101, 20240131}, params)

	_, _, err = TransactionFilter{StartDate: "01/02/2024"}.Where()
	assert.Error(t, err)
}
