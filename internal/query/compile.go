package query

import (
	"fmt"
	"strings"
)

// columns maps external transaction field names onto columns.
var columns = map[string]string{
	"id":             "id",
	"account":        "acct",
	"category":       "category",
	"payee":          "description",
	"notes":          "notes",
	"amount":         "amount",
	"date":           "date",
	"cleared":        "cleared",
	"reconciled":     "reconciled",
	"imported_id":    "imported_id",
	"imported_payee": "imported_description",
	"parent_id":      "parent_id",
	"transfer_id":    "transferred_id",
}

var ops = map[Op]bool{OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpNe: true}

// Compile converts a predicate to a WHERE fragment (without the keyword)
// and its parameters. A nil predicate compiles to an empty fragment.
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	return compile(p)
}

func compile(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		col, err := column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		if pred.Value == nil {
			return col + " IS NULL", nil, nil
		}
		return col + " = ?", []any{param(pred.Value)}, nil

	case Compare:
		col, err := column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		if !ops[pred.Op] {
			return "", nil, fmt.Errorf("query: unsupported operator %q", pred.Op)
		}
		if pred.Value == nil {
			return "", nil, fmt.Errorf("query: %s %s needs a value", pred.Field, pred.Op)
		}
		return fmt.Sprintf("%s %s ?", col, pred.Op), []any{param(pred.Value)}, nil

	case In:
		col, err := column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			params[i] = param(v)
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		return fmt.Sprintf("%s IN (%s)", col, marks), params, nil

	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compile(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(And); nested && len(pred.Predicates) > 1 {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil

	default:
		return "", nil, fmt.Errorf("query: unsupported predicate type %T", p)
	}
}

func column(field string) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("query: unknown field %q", field)
	}
	return col, nil
}

// param converts bools to the 0/1 integers the tables store.
func param(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
