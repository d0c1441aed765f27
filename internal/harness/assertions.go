package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/budgetsync/internal/budget"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", step.Step, step.Op)
			if step.Error != "" {
				fmt.Fprintf(&buf, " error=%q", step.Error)
			}
			for _, client := range sortedClients(step.Events) {
				fmt.Fprintf(&buf, " %s:%v", client, eventNames(step.Events[client]))
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// assertEventContains checks that the client received the event. When
// Tables is set a sync-event must name exactly those datasets.
func assertEventContains(result *Result, assertion Assertion) error {
	client := assertionClient(assertion)
	for _, ev := range result.EventsFor(client) {
		if ev.Name != assertion.Event {
			continue
		}
		if assertion.Tables == nil || slices.Equal(ev.Tables, assertion.Tables) {
			return nil
		}
	}

	expected := fmt.Sprintf("client %s received %s", client, assertion.Event)
	if assertion.Tables != nil {
		expected += fmt.Sprintf(" with tables %v", assertion.Tables)
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertEventOrder checks that the client received the events in the
// given order. Other events may come between them.
func assertEventOrder(result *Result, assertion Assertion) error {
	client := assertionClient(assertion)
	events := result.EventsFor(client)

	next := 0
	for _, ev := range events {
		if next < len(assertion.Events) && ev.Name == assertion.Events[next] {
			next++
		}
	}
	if next == len(assertion.Events) {
		return nil
	}

	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("client %s received in order: %v", client, assertion.Events),
		Actual: fmt.Sprintf("missing %s after %v (received %v)",
			assertion.Events[next], assertion.Events[:next], eventNames(events)),
		Trace: result.Trace,
	}
}

// assertEventCount checks that the client received the event exactly the
// specified number of times.
func assertEventCount(result *Result, assertion Assertion) error {
	client := assertionClient(assertion)
	count := 0
	for _, ev := range result.EventsFor(client) {
		if ev.Name == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s for client %s", assertion.Count, assertion.Event, client),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of a table in the open
// budget matches Where and carries the expected values.
//
// Table and column names are validated against a whitelist pattern because
// identifiers cannot be bound as parameters.
func assertFinalState(ctx context.Context, budgets *budget.Manager, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}
	b := budgets.Current()
	if b == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   "no budget is open",
		}
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := b.Store.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL argument.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML-decoded expected value with a value
// scanned from SQLite, which returns integers as int64, reals as float64
// and text as string or []byte.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		switch act := actual.(type) {
		case float64:
			return exp == act
		case int64:
			return exp == float64(act)
		}
		return false
	case bool:
		// SQLite stores booleans as integers
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		act, ok := actual.(bool)
		return ok && exp == act
	}
	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual any) bool {
	switch act := actual.(type) {
	case int64:
		return exp == act
	case float64:
		return float64(exp) == act
	}
	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Budgets *budget.Manager
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides budget access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventContains:
			err = assertEventContains(result, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Budgets == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a budget manager", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Budgets, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertionClient(a Assertion) string {
	if a.Client == "" {
		return clientName(0)
	}
	return a.Client
}

func eventNames(evs []EventRecord) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

func sortedClients(events map[string][]EventRecord) []string {
	out := make([]string, 0, len(events))
	for client := range events {
		out = append(out, client)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
