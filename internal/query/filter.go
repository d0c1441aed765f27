package query

import "github.com/roach88/budgetsync/internal/model"

// TransactionFilter is the argument shape of a transaction listing. Dates
// are YYYY-MM-DD and both ends are inclusive.
type TransactionFilter struct {
	AccountID string `json:"accountId,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Predicate turns the filter into a predicate over transactions.
func (f TransactionFilter) Predicate() (Predicate, error) {
	var and And
	if f.AccountID != "" {
		and.Predicates = append(and.Predicates, Equals{Field: "account", Value: f.AccountID})
	}
	if f.StartDate != "" {
		d, err := model.ParseDate(f.StartDate)
		if err != nil {
			return nil, err
		}
		and.Predicates = append(and.Predicates, Compare{Field: "date", Op: OpGte, Value: d})
	}
	if f.EndDate != "" {
		d, err := model.ParseDate(f.EndDate)
		if err != nil {
			return nil, err
		}
		and.Predicates = append(and.Predicates, Compare{Field: "date", Op: OpLte, Value: d})
	}
	if len(and.Predicates) == 0 {
		return nil, nil
	}
	return and, nil
}

// Where compiles the filter into a WHERE fragment and its parameters.
// Empty when the filter is empty.
func (f TransactionFilter) Where() (string, []any, error) {
	p, err := f.Predicate()
	if err != nil {
		return "", nil, err
	}
	return Compile(p)
}
