package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMonth(t *testing.T) {
	assert.True(t, IsMonth("2024-01"))
	assert.True(t, IsMonth("2024-13"), "shape only")
	assert.False(t, IsMonth("2024-1"))
	assert.False(t, IsMonth("2024-01-01"))
	assert.False(t, IsMonth("24-01"))
	assert.False(t, IsMonth(""))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m)

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
	_, err = ParseMonth("March")
	assert.Error(t, err)
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, "2024-02", AddMonths("2024-01", 1))
	assert.Equal(t, "2023-12", AddMonths("2024-01", -1))
	assert.Equal(t, "2025-01", AddMonths("2024-01", 12))
	assert.Panics(t, func() { AddMonths("bad", 1) })
}

func TestMonthRange(t *testing.T) {
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01"}, MonthRange("2023-11", "2024-01"))
	assert.Equal(t, []string{"2024-01"}, MonthRange("2024-01", "2024-01"))
	assert.Empty(t, MonthRange("2024-02", "2024-01"))
}

func TestMonthInt(t *testing.T) {
	assert.Equal(t, 202403, MonthInt("2024-03"))
	assert.Equal(t, "2024-03", MonthFromInt(202403))
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, 20240309, d)
	assert.Equal(t, "2024-03-09", FormatDate(d))
	assert.Equal(t, "2024-03", DateMonth(d))
	assert.Equal(t, "", FormatDate(0))

	_, err = ParseDate("2024-02-30")
	assert.Error(t, err)
	_, err = ParseDate("2024/02/01")
	assert.Error(t, err)
}

func TestMonthOf(t *testing.T) {
	assert.Equal(t, "2024-12", MonthOf(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
}
