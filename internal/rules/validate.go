package rules

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/budgetsync/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E200-E299)
const (
	ErrSchema          = "E200" // rule does not match the CUE schema
	ErrOperatorField   = "E201" // operator not valid for the condition field
	ErrActionField     = "E202" // set action without a field
	ErrValueType       = "E203" // value has the wrong shape for the operator
	ErrEmptyConditions = "E204" // conditions must not be empty
)

// ValidationError describes one problem with a rule.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	// cueMu serialises use of the shared CUE context.
	cueMu sync.Mutex

	schemaOnce sync.Once
	schemaCtx  *cue.Context
	ruleDef    cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile rule schema: %w", err)
			return
		}
		ruleDef = v.LookupPath(cue.ParsePath("#Rule"))
	})
	return schemaCtx, ruleDef, schemaErr
}

// document is the JSON shape checked against the CUE schema.
type document struct {
	Stage        any               `json:"stage"`
	ConditionsOp string            `json:"conditionsOp"`
	Conditions   []model.Condition `json:"conditions"`
	Actions      []model.Action    `json:"actions"`
}

// Validate checks a rule against the schema and the operator table.
// Returns all errors found (does not fail-fast).
func Validate(r model.Rule) []ValidationError {
	ctx, def, err := loadSchema()
	if err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error(), Code: ErrSchema}}
	}

	cueMu.Lock()
	defer cueMu.Unlock()

	doc := document{
		Stage:        nil,
		ConditionsOp: r.ConditionsOp,
		Conditions:   r.Conditions,
		Actions:      r.Actions,
	}
	if r.Stage != "" {
		doc.Stage = r.Stage
	}
	if doc.ConditionsOp == "" {
		doc.ConditionsOp = "and"
	}
	if doc.Conditions == nil {
		doc.Conditions = []model.Condition{}
	}
	if doc.Actions == nil {
		doc.Actions = []model.Action{}
	}

	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schemaErrors(err)
	}

	var errs []ValidationError
	if len(r.Conditions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "conditions",
			Message: "at least one condition is required",
			Code:    ErrEmptyConditions,
		})
	}
	for i, c := range r.Conditions {
		errs = append(errs, checkCondition(i, c)...)
	}
	for i, a := range r.Actions {
		if a.Op == "set" && a.Field == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("actions[%d].field", i),
				Message: "set actions need a field",
				Code:    ErrActionField,
			})
		}
	}
	return errs
}

// schemaErrors flattens CUE errors into validation errors, one per
// reported problem.
func schemaErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		field := "rule"
		if path := trimDefinition(e.Path()); len(path) > 0 {
			field = strings.Join(path, ".")
		}
		format, args := e.Msg()
		out = append(out, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchema,
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "rule", Message: err.Error(), Code: ErrSchema})
	}
	return out
}

func trimDefinition(path []string) []string {
	if len(path) > 0 && path[0] == "#Rule" {
		return path[1:]
	}
	return path
}

// operators lists, per field, the operators a condition may use.
var operators = map[string]map[string]bool{
	"account":        opSet("is", "isNot", "oneOf", "notOneOf", "contains", "doesNotContain", "matches", "onBudget", "offBudget"),
	"category":       opSet("is", "isNot", "oneOf", "notOneOf"),
	"payee":          opSet("is", "isNot", "oneOf", "notOneOf"),
	"imported_payee": opSet("is", "isNot", "oneOf", "notOneOf", "contains", "doesNotContain", "matches"),
	"notes":          opSet("is", "isNot", "oneOf", "notOneOf", "contains", "doesNotContain", "matches"),
	"date":           opSet("is", "isapprox", "gt", "gte", "lt", "lte"),
	"amount":         opSet("is", "isapprox", "isbetween", "gt", "gte", "lt", "lte"),
	"amount_inflow":  opSet("is", "isapprox", "isbetween", "gt", "gte", "lt", "lte"),
	"amount_outflow": opSet("is", "isapprox", "isbetween", "gt", "gte", "lt", "lte"),
	"cleared":        opSet("is"),
	"reconciled":     opSet("is"),
}

func opSet(ops ...string) map[string]bool {
	m := make(map[string]bool, len(ops))
	for _, o := range ops {
		m[o] = true
	}
	return m
}

func checkCondition(i int, c model.Condition) []ValidationError {
	field := fmt.Sprintf("conditions[%d]", i)
	if !operators[c.Field][c.Op] {
		return []ValidationError{{
			Field:   field + ".op",
			Message: fmt.Sprintf("operator %q is not valid for field %q", c.Op, c.Field),
			Code:    ErrOperatorField,
		}}
	}

	switch c.Op {
	case "oneOf", "notOneOf":
		if _, ok := c.Value.([]any); !ok {
			return []ValidationError{{Field: field + ".value", Message: "value must be a list", Code: ErrValueType}}
		}
	case "isbetween":
		m, ok := c.Value.(map[string]any)
		if !ok || m["num1"] == nil || m["num2"] == nil {
			return []ValidationError{{Field: field + ".value", Message: "value must have num1 and num2", Code: ErrValueType}}
		}
	case "contains", "doesNotContain", "matches":
		if _, ok := c.Value.(string); !ok {
			return []ValidationError{{Field: field + ".value", Message: "value must be a string", Code: ErrValueType}}
		}
	}
	return nil
}
