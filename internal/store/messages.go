package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/budgetsync/internal/model"
)

// Message is one column write: set Column of row Row in table Dataset to
// Value. Timestamp is the HLC timestamp that orders it in the change log.
type Message struct {
	Timestamp string
	Dataset   string
	Row       string
	Column    string
	Value     any
}

// columns lists the writable columns of every dataset. Messages naming
// anything else are rejected before any SQL is built from them.
var columns = map[string]map[string]bool{
	"accounts":        set("name", "offbudget", "closed", "sort_order", "tombstone"),
	"category_groups": set("name", "is_income", "hidden", "sort_order", "tombstone"),
	"categories":      set("name", "cat_group", "is_income", "hidden", "sort_order", "tombstone"),
	"payees":          set("name", "transfer_acct", "tombstone"),
	"rules":           set("stage", "conditions_op", "conditions", "actions", "tombstone"),
	"transactions": set(
		"acct", "category", "description", "notes", "amount", "date",
		"imported_id", "imported_description", "cleared", "reconciled",
		"isParent", "isChild", "parent_id", "starting_balance_flag",
		"transferred_id", "sort_order", "tombstone",
	),
	"zero_budgets":       set("month", "category", "amount", "carryover"),
	"zero_budget_months": set("buffered"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ValidColumn reports whether dataset.column may be written by a message.
func ValidColumn(dataset, column string) bool {
	return columns[dataset][column]
}

// ApplyMessages writes each message into its table inside one transaction.
// When record is true the messages are also appended to the change log, and
// a message older than the newest logged write to the same cell is skipped.
// When record is false the tables change but the log does not; this is how
// imports avoid producing a sync history.
func (s *Store) ApplyMessages(ctx context.Context, msgs []Message, record bool) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.Transaction(ctx, func(ctx context.Context) error {
		c := s.conn(ctx)
		for _, m := range msgs {
			if !ValidColumn(m.Dataset, m.Column) {
				return fmt.Errorf("apply message: unknown column %s.%s", m.Dataset, m.Column)
			}

			if record {
				newer, err := s.hasNewerWrite(ctx, c, m)
				if err != nil {
					return err
				}
				encoded, err := model.EncodeValue(m.Value)
				if err != nil {
					return fmt.Errorf("apply message %s.%s: %w", m.Dataset, m.Column, err)
				}
				_, err = c.ExecContext(ctx, `
					INSERT INTO messages_crdt (timestamp, dataset, row, "column", value)
					VALUES (?, ?, ?, ?, ?)
					ON CONFLICT(timestamp) DO NOTHING
				`, m.Timestamp, m.Dataset, m.Row, m.Column, encoded)
				if err != nil {
					return fmt.Errorf("log message: %w", err)
				}
				if newer {
					continue
				}
			}

			// Dataset and column come from the whitelist above.
			query := fmt.Sprintf(
				`INSERT INTO %s (id, "%s") VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET "%s" = excluded."%s"`,
				m.Dataset, m.Column, m.Column, m.Column,
			)
			if _, err := c.ExecContext(ctx, query, m.Row, sqlValue(m.Value)); err != nil {
				return fmt.Errorf("apply message %s.%s: %w", m.Dataset, m.Column, err)
			}
		}
		return nil
	})
}

func (s *Store) hasNewerWrite(ctx context.Context, c execer, m Message) (bool, error) {
	var latest sql.NullString
	err := c.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM messages_crdt
		WHERE dataset = ? AND row = ? AND "column" = ?
	`, m.Dataset, m.Row, m.Column).Scan(&latest)
	if err != nil {
		return false, fmt.Errorf("lookup latest write: %w", err)
	}
	return latest.Valid && latest.String > m.Timestamp, nil
}

func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// DatasetsSince returns the distinct datasets written by log entries with a
// timestamp strictly after since, sorted by name. An empty since matches
// every entry.
func (s *Store) DatasetsSince(ctx context.Context, since string) ([]string, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT DISTINCT dataset FROM messages_crdt WHERE timestamp > ?", since)
	if err != nil {
		return nil, fmt.Errorf("datasets since: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasets since: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// LastTimestamp returns the newest timestamp in the change log, or "" when
// the log is empty.
func (s *Store) LastTimestamp(ctx context.Context) (string, error) {
	var ts sql.NullString
	err := s.conn(ctx).QueryRowContext(ctx, "SELECT MAX(timestamp) FROM messages_crdt").Scan(&ts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("last timestamp: %w", err)
	}
	return ts.String, nil
}

// MessagesSince returns logged messages with a timestamp after since, in
// timestamp order, with values decoded.
func (s *Store) MessagesSince(ctx context.Context, since string) ([]Message, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT timestamp, dataset, row, "column", value
		FROM messages_crdt WHERE timestamp > ?
		ORDER BY timestamp
	`, since)
	if err != nil {
		return nil, fmt.Errorf("messages since: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var raw string
		if err := rows.Scan(&m.Timestamp, &m.Dataset, &m.Row, &m.Column, &raw); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.Value, err = model.DecodeValue(raw); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages returns the number of change-log entries.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM messages_crdt").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
