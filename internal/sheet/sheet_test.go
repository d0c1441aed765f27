package sheet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/messages"
	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/store"
	"github.com/roach88/budgetsync/internal/testutil"
)

type fixture struct {
	db     *data.DB
	sheet  *Sheet
	food   string
	salary string
	group  string
	acct   string
}

// createTestSheet seeds a budget with one expense category (Food), one
// income category (Salary) and an on-budget account.
func createTestSheet(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "budget.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	wall := testutil.NewFrozenWall(testutil.Epoch)
	sender := messages.NewSender(st, testutil.NewDeterministicClock())
	db := data.New(st, sender,
		data.WithIDGenerator(testutil.NewSequentialIDs("id")),
		data.WithNow(wall.Now),
	)
	sh := New(st, WithNow(wall.Now))
	sender.Observe(func(context.Context, []store.Message) { sh.MarkCacheDirty() })

	f := &fixture{db: db, sheet: sh}
	f.group, err = db.InsertCategoryGroup(ctx, model.CategoryGroup{Name: "Everyday"})
	require.NoError(t, err)
	income, err := db.InsertCategoryGroup(ctx, model.CategoryGroup{Name: "Income", IsIncome: true})
	require.NoError(t, err)
	f.food, err = db.InsertCategory(ctx, model.Category{Name: "Food", Group: f.group})
	require.NoError(t, err)
	f.salary, err = db.InsertCategory(ctx, model.Category{Name: "Salary", Group: income})
	require.NoError(t, err)
	f.acct, err = db.InsertAccount(ctx, model.Account{Name: "Checking"})
	require.NoError(t, err)
	return f
}

func (f *fixture) spend(t *testing.T, date int, category string, amount int64) {
	t.Helper()
	_, err := f.db.AddTransactions(context.Background(), f.acct, []model.Transaction{
		{Date: date, Category: category, Amount: amount},
	}, false)
	require.NoError(t, err)
}

func cell(t *testing.T, s *Sheet, month, name string) any {
	t.Helper()
	v, err := s.GetCellValue(context.Background(), Name(month), name)
	require.NoError(t, err)
	return v
}

func TestName(t *testing.T) {
	assert.Equal(t, "budget202401", Name("2024-01"))

	month, err := MonthOf("budget202412")
	require.NoError(t, err)
	assert.Equal(t, "2024-12", month)

	for _, bad := range []string{"budget2024", "sheet202401", "budget202413"} {
		_, err := MonthOf(bad)
		assert.Error(t, err, bad)
	}
}

func TestBounds_NoTransactions(t *testing.T) {
	f := createTestSheet(t)
	r, err := f.sheet.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "2023-10", End: "2025-01"}, r)
	assert.True(t, r.Contains("2024-06"))
	assert.False(t, r.Contains("2025-02"))
	assert.Len(t, r.Months(), 16)
}

func TestBounds_EarliestTransaction(t *testing.T) {
	f := createTestSheet(t)
	f.spend(t, 20230515, f.food, -100)

	r, err := f.sheet.RecomputeBounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2023-02", r.Start)
	assert.Equal(t, "2025-01", r.End)
}

func TestBounds_RefreshAfterWrite(t *testing.T) {
	f := createTestSheet(t)
	r, err := f.sheet.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2023-10", r.Start)

	f.spend(t, 20220115, f.food, -100)

	r, err = f.sheet.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2021-10", r.Start)
	assert.True(t, r.Contains("2021-10"))
}

func TestBounds_FollowCurrentMonth(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "budget.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	wall := testutil.NewFrozenWall(testutil.Epoch)
	sh := New(st, WithNow(wall.Now))
	r, err := sh.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "2023-10", End: "2025-01"}, r)

	wall.Advance(45 * 24 * time.Hour)
	r, err = sh.Bounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "2023-11", End: "2025-02"}, r)
}

func TestMonth_Rollover(t *testing.T) {
	ctx := context.Background()
	f := createTestSheet(t)

	f.spend(t, 20240105, f.salary, 100000)
	f.spend(t, 20240110, f.food, -30000)
	f.spend(t, 20240210, f.food, -40000)
	require.NoError(t, f.db.SetBudget(ctx, "2024-01", f.food, 50000))
	require.NoError(t, f.db.SetBudget(ctx, "2024-02", f.food, 10000))

	// January: income arrives, Food keeps 20000.
	assert.Equal(t, int64(100000), cell(t, f.sheet, "2024-01", "total-income"))
	assert.Equal(t, int64(100000), cell(t, f.sheet, "2024-01", "available-funds"))
	assert.Equal(t, int64(-50000), cell(t, f.sheet, "2024-01", "total-budgeted"))
	assert.Equal(t, int64(50000), cell(t, f.sheet, "2024-01", "to-budget"))
	assert.Equal(t, int64(20000), cell(t, f.sheet, "2024-01", "leftover-"+f.food))
	assert.Equal(t, int64(-30000), cell(t, f.sheet, "2024-01", "sum-amount-"+f.food))

	// February: positive leftover carries in, Food ends overspent.
	assert.Equal(t, int64(50000), cell(t, f.sheet, "2024-02", "from-last-month"))
	assert.Equal(t, int64(-10000), cell(t, f.sheet, "2024-02", "leftover-"+f.food))
	assert.Equal(t, int64(40000), cell(t, f.sheet, "2024-02", "to-budget"))
	assert.Equal(t, int64(10000), cell(t, f.sheet, "2024-02", "group-budget-"+f.group))

	// March: the overspend comes out of to-budget.
	assert.Equal(t, int64(-10000), cell(t, f.sheet, "2024-03", "last-month-overspent"))
	assert.Equal(t, int64(0), cell(t, f.sheet, "2024-03", "leftover-"+f.food))
	assert.Equal(t, int64(30000), cell(t, f.sheet, "2024-03", "to-budget"))
}

func TestMonth_CarryoverKeepsOverspend(t *testing.T) {
	ctx := context.Background()
	f := createTestSheet(t)

	f.spend(t, 20240210, f.food, -40000)
	require.NoError(t, f.db.SetBudget(ctx, "2024-02", f.food, 10000))
	assert.Equal(t, int64(-30000), cell(t, f.sheet, "2024-03", "last-month-overspent"))

	require.NoError(t, f.db.SetCarryover(ctx, []string{"2024-02"}, f.food, true))
	assert.Equal(t, true, cell(t, f.sheet, "2024-02", "carryover-"+f.food))
	assert.Equal(t, int64(0), cell(t, f.sheet, "2024-03", "last-month-overspent"))
	assert.Equal(t, int64(-30000), cell(t, f.sheet, "2024-03", "leftover-"+f.food))
}

func TestMonth_Buffered(t *testing.T) {
	ctx := context.Background()
	f := createTestSheet(t)

	f.spend(t, 20240105, f.salary, 1000)
	require.NoError(t, f.db.SetBuffered(ctx, "2024-01", 400))

	assert.Equal(t, int64(400), cell(t, f.sheet, "2024-01", "buffered"))
	assert.Equal(t, int64(600), cell(t, f.sheet, "2024-01", "to-budget"))
	assert.Equal(t, int64(1000), cell(t, f.sheet, "2024-02", "from-last-month"))
}

func TestMarkCacheDirty(t *testing.T) {
	ctx := context.Background()
	f := createTestSheet(t)

	assert.Equal(t, int64(0), cell(t, f.sheet, "2024-01", "budget-"+f.food))

	// Bypass the observer so only an explicit flush reveals the change.
	st := f.db.Store()
	other := New(st, WithNow(testutil.NewFrozenWall(testutil.Epoch).Now))
	assert.Equal(t, int64(0), cell(t, other, "2024-01", "budget-"+f.food))
	require.NoError(t, f.db.SetBudget(ctx, "2024-01", f.food, 700))
	assert.Equal(t, int64(0), cell(t, other, "2024-01", "budget-"+f.food))

	other.MarkCacheDirty()
	assert.Equal(t, int64(700), cell(t, other, "2024-01", "budget-"+f.food))
	assert.Equal(t, int64(700), cell(t, f.sheet, "2024-01", "budget-"+f.food))
}

func TestGetCellValue_UnknownCell(t *testing.T) {
	f := createTestSheet(t)
	_, err := f.sheet.GetCellValue(context.Background(), Name("2024-01"), "nonsense")
	assert.ErrorIs(t, err, ErrUnknownCell)
}

func TestWaitOnSpreadsheet(t *testing.T) {
	f := createTestSheet(t)
	require.NoError(t, f.sheet.WaitOnSpreadsheet(context.Background()))

	f.sheet.busy <- struct{}{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.sheet.WaitOnSpreadsheet(ctx), context.DeadlineExceeded)
	<-f.sheet.busy
}
