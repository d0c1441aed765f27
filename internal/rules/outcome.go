package rules

import "github.com/roach88/budgetsync/internal/model"

// Outcome is the result of saving a rule: either Saved or Rejected.
//
// This is a sealed interface; only types in this package implement it.
type Outcome interface {
	isOutcome()
}

// Saved carries the rule as stored, with its id assigned.
type Saved struct {
	Rule model.Rule
}

// Rejected carries the validation errors that stopped the save.
type Rejected struct {
	Errors []ValidationError
}

func (Saved) isOutcome()    {}
func (Rejected) isOutcome() {}
