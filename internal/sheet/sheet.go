package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/roach88/budgetsync/internal/model"
	"github.com/roach88/budgetsync/internal/store"
)

// DefaultTTL bounds how long a computed month sheet is reused.
const DefaultTTL = 10 * time.Minute

// ErrUnknownCell is returned for a cell name no sheet defines.
var ErrUnknownCell = errors.New("sheet: unknown cell")

// Range is an inclusive span of YYYY-MM months.
type Range struct {
	Start string
	End   string
}

// Contains reports whether month lies within the range.
func (r Range) Contains(month string) bool {
	return month >= r.Start && month <= r.End
}

// Months lists every month of the range.
func (r Range) Months() []string {
	return model.MonthRange(r.Start, r.End)
}

// Sheet serves cell values for one budget file.
//
// Thread-safety: all methods are safe for concurrent use.
type Sheet struct {
	store *store.Store
	now   func() time.Time
	cache *cache.Cache

	// busy is held while a month is being computed.
	busy chan struct{}

	mu     sync.Mutex
	bounds *Range
	// boundsMonth is the current month the cached bounds were computed in.
	boundsMonth string
}

// Option configures a Sheet.
type Option func(*Sheet)

// WithNow replaces the wall clock that decides the current month.
func WithNow(fn func() time.Time) Option {
	return func(s *Sheet) {
		s.now = fn
	}
}

// WithTTL sets how long computed month sheets stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sheet) {
		s.cache = cache.New(ttl, 2*ttl)
	}
}

// New creates a sheet over a store.
func New(st *store.Store, opts ...Option) *Sheet {
	s := &Sheet{
		store: st,
		now:   time.Now,
		cache: cache.New(DefaultTTL, 2*DefaultTTL),
		busy:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the sheet name for a YYYY-MM month.
func Name(month string) string {
	return "budget" + strings.ReplaceAll(month, "-", "")
}

// MonthOf parses a sheet name back into its YYYY-MM month.
func MonthOf(name string) (string, error) {
	digits, ok := strings.CutPrefix(name, "budget")
	if !ok || len(digits) != 6 {
		return "", fmt.Errorf("sheet: invalid sheet name %q", name)
	}
	month := digits[:4] + "-" + digits[4:]
	if _, err := model.ParseMonth(month); err != nil {
		return "", fmt.Errorf("sheet: invalid sheet name %q: %w", name, err)
	}
	return month, nil
}

// CurrentMonth returns the month the wall clock is in.
func (s *Sheet) CurrentMonth() string {
	return model.MonthOf(s.now())
}

// MarkCacheDirty discards every computed month and the cached bounds so the
// next read recomputes.
func (s *Sheet) MarkCacheDirty() {
	s.cache.Flush()
	s.mu.Lock()
	s.bounds = nil
	s.mu.Unlock()
}

// WaitOnSpreadsheet blocks until no month computation is running.
func (s *Sheet) WaitOnSpreadsheet(ctx context.Context) error {
	select {
	case s.busy <- struct{}{}:
		<-s.busy
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bounds returns the months the budget covers. The cached range is reused
// until a write marks the cache dirty or the current month changes.
func (s *Sheet) Bounds(ctx context.Context) (Range, error) {
	current := s.CurrentMonth()
	s.mu.Lock()
	if s.bounds != nil && s.boundsMonth == current {
		r := *s.bounds
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()
	return s.RecomputeBounds(ctx)
}

// RecomputeBounds recalculates the budget's month range: from three months
// before the earliest transaction (or the current month if earlier) through
// twelve months after the current month.
func (s *Sheet) RecomputeBounds(ctx context.Context) (Range, error) {
	current := s.CurrentMonth()
	start := current
	earliest, err := s.store.EarliestTransactionDate(ctx)
	if err != nil {
		return Range{}, err
	}
	if earliest > 0 {
		if m := model.DateMonth(earliest); m < start {
			start = m
		}
	}
	r := Range{Start: model.AddMonths(start, -3), End: model.AddMonths(current, 12)}

	s.mu.Lock()
	s.bounds = &r
	s.boundsMonth = current
	s.mu.Unlock()
	return r, nil
}

// GetCellValue returns the value of a cell in a named month sheet. Carryover
// cells are bool, every other cell is an int64 amount.
func (s *Sheet) GetCellValue(ctx context.Context, sheetName, cell string) (any, error) {
	month, err := MonthOf(sheetName)
	if err != nil {
		return nil, err
	}
	m, err := s.Month(ctx, month)
	if err != nil {
		return nil, err
	}
	return m.Cell(cell)
}

// Month returns the computed sheet for a YYYY-MM month.
func (s *Sheet) Month(ctx context.Context, month string) (*MonthSheet, error) {
	if _, err := model.ParseMonth(month); err != nil {
		return nil, err
	}
	if m, ok := s.cache.Get(month); ok {
		return m.(*MonthSheet), nil
	}

	select {
	case s.busy <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.busy }()

	bounds, err := s.Bounds(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}

	// Walk forward from the first uncached month so each month can build on
	// the previous one.
	first := month
	var prev *MonthSheet
	for first > bounds.Start {
		before := model.AddMonths(first, -1)
		if cached, ok := s.cache.Get(before); ok {
			prev = cached.(*MonthSheet)
			break
		}
		first = before
	}

	var m *MonthSheet
	for cur := first; cur <= month; cur = model.AddMonths(cur, 1) {
		if m, err = s.compute(ctx, cur, cats, prev); err != nil {
			return nil, err
		}
		s.cache.SetDefault(cur, m)
		prev = m
	}
	return m, nil
}

func (s *Sheet) compute(ctx context.Context, month string, cats []model.Category, prev *MonthSheet) (*MonthSheet, error) {
	cells, err := s.store.BudgetCells(ctx, month)
	if err != nil {
		return nil, err
	}
	activity, err := s.store.CategoryActivity(ctx, month)
	if err != nil {
		return nil, err
	}
	buffered, err := s.store.Buffered(ctx, month)
	if err != nil {
		return nil, err
	}

	budgeted := make(map[string]model.BudgetCell, len(cells))
	for _, c := range cells {
		budgeted[c.Category] = c
	}

	m := &MonthSheet{
		Month:      month,
		Buffered:   buffered,
		Categories: make(map[string]CategoryCell, len(cats)),
		Groups:     make(map[string]GroupCell),
	}
	if prev != nil {
		m.FromLastMonth = prev.ToBudget + prev.Buffered
	}

	for _, c := range cats {
		spent := activity[c.ID]
		g := m.Groups[c.Group]
		if c.IsIncome {
			m.TotalIncome += spent
			g.SumAmount += spent
			m.Groups[c.Group] = g
			m.Categories[c.ID] = CategoryCell{Spent: spent}
			continue
		}

		cell := CategoryCell{
			Budgeted:  budgeted[c.ID].Amount,
			Spent:     spent,
			Carryover: budgeted[c.ID].Carryover,
		}
		if prev != nil {
			last := prev.Categories[c.ID]
			switch {
			case last.Leftover > 0 || last.Carryover:
				cell.Leftover = last.Leftover
			default:
				m.LastMonthOverspent += last.Leftover
			}
		}
		cell.Leftover += cell.Budgeted + cell.Spent

		m.Categories[c.ID] = cell
		m.TotalBudgeted -= cell.Budgeted
		m.TotalSpent += cell.Spent
		m.TotalLeftover += cell.Leftover

		g.Budgeted += cell.Budgeted
		g.SumAmount += cell.Spent
		g.Leftover += cell.Leftover
		m.Groups[c.Group] = g
	}

	m.AvailableFunds = m.TotalIncome + m.FromLastMonth
	m.ToBudget = m.AvailableFunds + m.LastMonthOverspent + m.TotalBudgeted - m.Buffered
	return m, nil
}
