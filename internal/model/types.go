package model

// Account is a row of the accounts table.
type Account struct {
	ID        string
	Name      string
	OffBudget bool
	Closed    bool
	SortOrder float64
	Tombstone bool
}

// CategoryGroup is a row of the category_groups table. Categories is only
// populated by grouped reads.
type CategoryGroup struct {
	ID         string
	Name       string
	IsIncome   bool
	Hidden     bool
	SortOrder  float64
	Tombstone  bool
	Categories []Category
}

// Category is a row of the categories table.
type Category struct {
	ID        string
	Name      string
	Group     string
	IsIncome  bool
	Hidden    bool
	SortOrder float64
	Tombstone bool
}

// Payee is a row of the payees table. TransferAcct is set for the payee that
// represents transfers into an account.
type Payee struct {
	ID           string
	Name         string
	TransferAcct string
	Tombstone    bool
}

// Condition is one predicate of a rule.
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Action is one effect of a rule.
type Action struct {
	Field string `json:"field,omitempty"`
	Op    string `json:"op"`
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Rule is a row of the rules table with its JSON columns decoded.
type Rule struct {
	ID           string
	Stage        string
	ConditionsOp string
	Conditions   []Condition
	Actions      []Action
	Tombstone    bool
}

// Transaction is a row of the transactions table. Subtransactions is only
// populated in grouped form.
type Transaction struct {
	ID              string
	Account         string
	Category        string
	Payee           string
	Notes           string
	Amount          int64
	Date            int
	ImportedID      string
	ImportedPayee   string
	Cleared         bool
	Reconciled      bool
	IsParent        bool
	IsChild         bool
	ParentID        string
	StartingBalance bool
	TransferID      string
	SortOrder       float64
	Tombstone       bool
	Subtransactions []Transaction
}

// BudgetCell is a row of zero_budgets: the amount budgeted for a category in
// one month plus its carryover flag.
type BudgetCell struct {
	Month     string
	Category  string
	Amount    int64
	Carryover bool
}
