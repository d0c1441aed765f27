package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/budgetsync/internal/model"
)

// ErrNotFound is returned by single-row reads when no live row matches.
var ErrNotFound = errors.New("store: not found")

// Accounts returns live accounts ordered by sort_order, then name.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, offbudget, closed, sort_order, tombstone
		FROM accounts WHERE tombstone = 0
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.OffBudget, &a.Closed, &a.SortOrder, &a.Tombstone); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Account returns one account, including tombstoned ones.
func (s *Store) Account(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, offbudget, closed, sort_order, tombstone
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.OffBudget, &a.Closed, &a.SortOrder, &a.Tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("query account %s: %w", id, err)
	}
	return a, nil
}

// AccountBalance sums non-parent transaction amounts for an account, up to
// and including the given YYYYMMDD date when cutoff is non-zero.
func (s *Store) AccountBalance(ctx context.Context, id string, cutoff int) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE acct = ? AND isParent = 0 AND tombstone = 0`
	args := []any{id}
	if cutoff != 0 {
		query += " AND date <= ?"
		args = append(args, cutoff)
	}
	var total int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("account balance %s: %w", id, err)
	}
	return total, nil
}

// CategoryGroups returns live groups with their live categories attached,
// ordered by sort_order.
func (s *Store) CategoryGroups(ctx context.Context) ([]model.CategoryGroup, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, is_income, hidden, sort_order, tombstone
		FROM category_groups WHERE tombstone = 0
		ORDER BY is_income, sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query category groups: %w", err)
	}

	var groups []model.CategoryGroup
	for rows.Next() {
		var g model.CategoryGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.IsIncome, &g.Hidden, &g.SortOrder, &g.Tombstone); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("query category groups: %w", err)
	}
	rows.Close()

	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[string][]model.Category)
	for _, c := range cats {
		byGroup[c.Group] = append(byGroup[c.Group], c)
	}
	for i := range groups {
		groups[i].Categories = byGroup[groups[i].ID]
	}
	return groups, nil
}

// CategoryGroup returns one group without its categories, including
// tombstoned ones.
func (s *Store) CategoryGroup(ctx context.Context, id string) (model.CategoryGroup, error) {
	var g model.CategoryGroup
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, is_income, hidden, sort_order, tombstone
		FROM category_groups WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &g.IsIncome, &g.Hidden, &g.SortOrder, &g.Tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, fmt.Errorf("query category group %s: %w", id, err)
	}
	return g, nil
}

// Categories returns live categories ordered by sort_order.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, COALESCE(cat_group, ''), is_income, hidden, sort_order, tombstone
		FROM categories WHERE tombstone = 0
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Category returns one category, including tombstoned ones.
func (s *Store) Category(ctx context.Context, id string) (model.Category, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, COALESCE(cat_group, ''), is_income, hidden, sort_order, tombstone
		FROM categories WHERE id = ?
	`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(sc scanner) (model.Category, error) {
	var c model.Category
	err := sc.Scan(&c.ID, &c.Name, &c.Group, &c.IsIncome, &c.Hidden, &c.SortOrder, &c.Tombstone)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("scan category: %w", err)
	}
	return c, err
}

// Payees returns live payees ordered by name.
func (s *Store) Payees(ctx context.Context) ([]model.Payee, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, COALESCE(transfer_acct, ''), tombstone
		FROM payees WHERE tombstone = 0
		ORDER BY transfer_acct IS NOT NULL, name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query payees: %w", err)
	}
	defer rows.Close()

	var out []model.Payee
	for rows.Next() {
		var p model.Payee
		if err := rows.Scan(&p.ID, &p.Name, &p.TransferAcct, &p.Tombstone); err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Payee returns one payee, including tombstoned ones.
func (s *Store) Payee(ctx context.Context, id string) (model.Payee, error) {
	var p model.Payee
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, COALESCE(transfer_acct, ''), tombstone
		FROM payees WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.TransferAcct, &p.Tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("query payee %s: %w", id, err)
	}
	return p, nil
}

// Rules returns live rules with their JSON columns decoded.
func (s *Store) Rules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, COALESCE(stage, ''), conditions_op, conditions, actions, tombstone
		FROM rules WHERE tombstone = 0
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rule returns one rule, including tombstoned ones.
func (s *Store) Rule(ctx context.Context, id string) (model.Rule, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, COALESCE(stage, ''), conditions_op, conditions, actions, tombstone
		FROM rules WHERE id = ?
	`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func scanRule(sc scanner) (model.Rule, error) {
	var r model.Rule
	var conds, actions string
	if err := sc.Scan(&r.ID, &r.Stage, &r.ConditionsOp, &conds, &actions, &r.Tombstone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan rule: %w", err)
	}
	if err := json.Unmarshal([]byte(conds), &r.Conditions); err != nil {
		return r, fmt.Errorf("decode rule %s conditions: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
		return r, fmt.Errorf("decode rule %s actions: %w", r.ID, err)
	}
	return r, nil
}

const transactionColumns = `id, COALESCE(acct, ''), COALESCE(category, ''),
	COALESCE(description, ''), COALESCE(notes, ''), amount, date,
	COALESCE(imported_id, ''), COALESCE(imported_description, ''),
	cleared, reconciled, isParent, isChild, COALESCE(parent_id, ''),
	starting_balance_flag, COALESCE(transferred_id, ''), sort_order, tombstone`

func scanTransaction(sc scanner) (model.Transaction, error) {
	var t model.Transaction
	err := sc.Scan(
		&t.ID, &t.Account, &t.Category, &t.Payee, &t.Notes, &t.Amount, &t.Date,
		&t.ImportedID, &t.ImportedPayee, &t.Cleared, &t.Reconciled, &t.IsParent,
		&t.IsChild, &t.ParentID, &t.StartingBalance, &t.TransferID, &t.SortOrder,
		&t.Tombstone,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("scan transaction: %w", err)
	}
	return t, err
}

// TransactionByID returns one transaction row, including tombstoned ones.
func (s *Store) TransactionByID(ctx context.Context, id string) (model.Transaction, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// QueryTransactions returns live transaction rows matching where, a SQL
// boolean expression over transactions columns with ? placeholders bound to
// args. An empty where matches every live row. Rows are ordered newest
// first, children after their parent.
func (s *Store) QueryTransactions(ctx context.Context, where string, args ...any) ([]model.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE tombstone = 0"
	if strings.TrimSpace(where) != "" {
		query += " AND (" + where + ")"
	}
	query += " ORDER BY date DESC, sort_order DESC, isChild, id"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EarliestTransactionDate returns the smallest live transaction date, or 0
// when there are none.
func (s *Store) EarliestTransactionDate(ctx context.Context) (int, error) {
	var d sql.NullInt64
	err := s.conn(ctx).QueryRowContext(ctx,
		"SELECT MIN(date) FROM transactions WHERE tombstone = 0 AND date > 0").Scan(&d)
	if err != nil {
		return 0, fmt.Errorf("earliest transaction date: %w", err)
	}
	return int(d.Int64), nil
}

// BudgetCells returns every zero_budgets row for a YYYY-MM month.
func (s *Store) BudgetCells(ctx context.Context, month string) ([]model.BudgetCell, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT COALESCE(category, ''), amount, carryover
		FROM zero_budgets WHERE month = ?
		ORDER BY category
	`, model.MonthInt(month))
	if err != nil {
		return nil, fmt.Errorf("query budget cells: %w", err)
	}
	defer rows.Close()

	var out []model.BudgetCell
	for rows.Next() {
		c := model.BudgetCell{Month: month}
		if err := rows.Scan(&c.Category, &c.Amount, &c.Carryover); err != nil {
			return nil, fmt.Errorf("scan budget cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Buffered returns the amount held for next month in a YYYY-MM month.
func (s *Store) Buffered(ctx context.Context, month string) (int64, error) {
	var n int64
	err := s.conn(ctx).QueryRowContext(ctx,
		"SELECT buffered FROM zero_budget_months WHERE id = ?", month).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query buffered %s: %w", month, err)
	}
	return n, nil
}

// CategoryActivity sums on-budget, non-parent transaction amounts per
// category for a YYYY-MM month.
func (s *Store) CategoryActivity(ctx context.Context, month string) (map[string]int64, error) {
	lo := model.MonthInt(month) * 100
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT t.category, SUM(t.amount)
		FROM transactions t
		JOIN accounts a ON a.id = t.acct
		WHERE t.tombstone = 0 AND t.isParent = 0 AND a.offbudget = 0
		  AND t.category IS NOT NULL AND t.date > ? AND t.date < ?
		GROUP BY t.category
	`, lo, lo+100)
	if err != nil {
		return nil, fmt.Errorf("query category activity: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var cat string
		var sum int64
		if err := rows.Scan(&cat, &sum); err != nil {
			return nil, fmt.Errorf("scan category activity: %w", err)
		}
		out[cat] = sum
	}
	return out, rows.Err()
}

// BudgetMonths returns the distinct YYYY-MM months that have budget
// cells, oldest first.
func (s *Store) BudgetMonths(ctx context.Context) ([]string, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, "SELECT DISTINCT month FROM zero_budgets ORDER BY month")
	if err != nil {
		return nil, fmt.Errorf("query budget months: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan budget month: %w", err)
		}
		out = append(out, model.MonthFromInt(m))
	}
	return out, rows.Err()
}
