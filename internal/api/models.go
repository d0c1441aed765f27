package api

import (
	"github.com/roach88/budgetsync/internal/model"
)

// Account is the external shape of an account.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OffBudget bool   `json:"offbudget"`
	Closed    bool   `json:"closed"`
}

// AccountFields is a partial account edit.
type AccountFields struct {
	Name      *string `json:"name,omitempty"`
	OffBudget *bool   `json:"offbudget,omitempty"`
}

// CategoryGroup is the external shape of a category group.
type CategoryGroup struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsIncome   bool       `json:"is_income"`
	Hidden     bool       `json:"hidden"`
	Categories []Category `json:"categories,omitempty"`
}

// GroupFields is a partial category group edit.
type GroupFields struct {
	Name   *string `json:"name,omitempty"`
	Hidden *bool   `json:"hidden,omitempty"`
}

// Category is the external shape of a category.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	GroupID  string `json:"group_id"`
	IsIncome bool   `json:"is_income"`
	Hidden   bool   `json:"hidden"`
}

// CategoryFields is a partial category edit.
type CategoryFields struct {
	Name    *string `json:"name,omitempty"`
	GroupID *string `json:"group_id,omitempty"`
	Hidden  *bool   `json:"hidden,omitempty"`
}

// Payee is the external shape of a payee.
type Payee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TransferAcct string `json:"transfer_acct,omitempty"`
}

// PayeeFields is a partial payee edit.
type PayeeFields struct {
	Name *string `json:"name,omitempty"`
}

// Rule is the external shape of a rule.
type Rule struct {
	ID           string            `json:"id,omitempty"`
	Stage        string            `json:"stage,omitempty"`
	ConditionsOp string            `json:"conditionsOp,omitempty"`
	Conditions   []model.Condition `json:"conditions"`
	Actions      []model.Action    `json:"actions"`
}

// Transaction is the external shape of a transaction. Dates are
// YYYY-MM-DD; amounts are integer cents.
type Transaction struct {
	ID              string        `json:"id,omitempty"`
	Account         string        `json:"account,omitempty"`
	Date            string        `json:"date,omitempty"`
	Amount          int64         `json:"amount"`
	Payee           string        `json:"payee,omitempty"`
	PayeeName       string        `json:"payee_name,omitempty"`
	ImportedPayee   string        `json:"imported_payee,omitempty"`
	Category        string        `json:"category,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	ImportedID      string        `json:"imported_id,omitempty"`
	TransferID      string        `json:"transfer_id,omitempty"`
	ParentID        string        `json:"parent_id,omitempty"`
	IsParent        bool          `json:"is_parent,omitempty"`
	IsChild         bool          `json:"is_child,omitempty"`
	Cleared         bool          `json:"cleared"`
	Reconciled      bool          `json:"reconciled,omitempty"`
	StartingBalance bool          `json:"starting_balance_flag,omitempty"`
	Subtransactions []Transaction `json:"subtransactions,omitempty"`
}

// TransactionFields is a partial transaction edit.
type TransactionFields struct {
	Account    *string `json:"account,omitempty"`
	Category   *string `json:"category,omitempty"`
	Payee      *string `json:"payee,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	Amount     *int64  `json:"amount,omitempty"`
	Date       *string `json:"date,omitempty"`
	Cleared    *bool   `json:"cleared,omitempty"`
	Reconciled *bool   `json:"reconciled,omitempty"`
}

// ImportResult lists the transactions an import added and updated.
type ImportResult struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
}

// MonthSummary is the computed budget of one month.
type MonthSummary struct {
	Month              string         `json:"month"`
	IncomeAvailable    int64          `json:"incomeAvailable"`
	LastMonthOverspent int64          `json:"lastMonthOverspent"`
	ForNextMonth       int64          `json:"forNextMonth"`
	TotalBudgeted      int64          `json:"totalBudgeted"`
	ToBudget           int64          `json:"toBudget"`
	FromLastMonth      int64          `json:"fromLastMonth"`
	TotalIncome        int64          `json:"totalIncome"`
	TotalSpent         int64          `json:"totalSpent"`
	TotalBalance       int64          `json:"totalBalance"`
	CategoryGroups     []GroupSummary `json:"categoryGroups"`
}

// GroupSummary is one category group within a MonthSummary.
type GroupSummary struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	IsIncome   bool              `json:"is_income"`
	Hidden     bool              `json:"hidden"`
	Budgeted   int64             `json:"budgeted"`
	Spent      int64             `json:"spent"`
	Balance    int64             `json:"balance"`
	Categories []CategorySummary `json:"categories"`
}

// CategorySummary is one category within a MonthSummary.
type CategorySummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GroupID   string `json:"group_id"`
	IsIncome  bool   `json:"is_income"`
	Hidden    bool   `json:"hidden"`
	Budgeted  int64  `json:"budgeted"`
	Spent     int64  `json:"spent"`
	Balance   int64  `json:"balance"`
	Carryover bool   `json:"carryover"`
}

func accountOut(a model.Account) Account {
	return Account{ID: a.ID, Name: a.Name, OffBudget: a.OffBudget, Closed: a.Closed}
}

func (f AccountFields) columns() map[string]any {
	out := make(map[string]any)
	if f.Name != nil {
		out["name"] = *f.Name
	}
	if f.OffBudget != nil {
		out["offbudget"] = *f.OffBudget
	}
	return out
}

func groupOut(g model.CategoryGroup) CategoryGroup {
	out := CategoryGroup{ID: g.ID, Name: g.Name, IsIncome: g.IsIncome, Hidden: g.Hidden}
	for _, c := range g.Categories {
		out.Categories = append(out.Categories, categoryOut(c))
	}
	return out
}

func groupIn(g CategoryGroup) model.CategoryGroup {
	return model.CategoryGroup{ID: g.ID, Name: g.Name, IsIncome: g.IsIncome, Hidden: g.Hidden}
}

func (f GroupFields) columns() map[string]any {
	out := make(map[string]any)
	if f.Name != nil {
		out["name"] = *f.Name
	}
	if f.Hidden != nil {
		out["hidden"] = *f.Hidden
	}
	return out
}

func categoryOut(c model.Category) Category {
	return Category{ID: c.ID, Name: c.Name, GroupID: c.Group, IsIncome: c.IsIncome, Hidden: c.Hidden}
}

func categoryIn(c Category) model.Category {
	return model.Category{ID: c.ID, Name: c.Name, Group: c.GroupID, IsIncome: c.IsIncome, Hidden: c.Hidden}
}

func (f CategoryFields) columns() map[string]any {
	out := make(map[string]any)
	if f.Name != nil {
		out["name"] = *f.Name
	}
	if f.GroupID != nil {
		out["cat_group"] = *f.GroupID
	}
	if f.Hidden != nil {
		out["hidden"] = *f.Hidden
	}
	return out
}

func payeeOut(p model.Payee) Payee {
	return Payee{ID: p.ID, Name: p.Name, TransferAcct: p.TransferAcct}
}

func payeeIn(p Payee) model.Payee {
	return model.Payee{ID: p.ID, Name: p.Name, TransferAcct: p.TransferAcct}
}

func (f PayeeFields) columns() map[string]any {
	out := make(map[string]any)
	if f.Name != nil {
		out["name"] = *f.Name
	}
	return out
}

func ruleOut(r model.Rule) Rule {
	return Rule{
		ID:           r.ID,
		Stage:        r.Stage,
		ConditionsOp: r.ConditionsOp,
		Conditions:   r.Conditions,
		Actions:      r.Actions,
	}
}

func ruleIn(r Rule) model.Rule {
	return model.Rule{
		ID:           r.ID,
		Stage:        r.Stage,
		ConditionsOp: r.ConditionsOp,
		Conditions:   r.Conditions,
		Actions:      r.Actions,
	}
}

func transactionOut(t model.Transaction) Transaction {
	out := Transaction{
		ID:              t.ID,
		Account:         t.Account,
		Date:            model.FormatDate(t.Date),
		Amount:          t.Amount,
		Payee:           t.Payee,
		ImportedPayee:   t.ImportedPayee,
		Category:        t.Category,
		Notes:           t.Notes,
		ImportedID:      t.ImportedID,
		TransferID:      t.TransferID,
		ParentID:        t.ParentID,
		IsParent:        t.IsParent,
		IsChild:         t.IsChild,
		Cleared:         t.Cleared,
		Reconciled:      t.Reconciled,
		StartingBalance: t.StartingBalance,
	}
	for _, sub := range t.Subtransactions {
		out.Subtransactions = append(out.Subtransactions, transactionOut(sub))
	}
	return out
}

func transactionsOut(ts []model.Transaction) []Transaction {
	out := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		out = append(out, transactionOut(t))
	}
	return out
}

// transactionIn maps a new transaction. Split flags and parent links are
// derived by the handlers from Subtransactions.
func transactionIn(t Transaction) (model.Transaction, error) {
	date, err := parseDate("date", t.Date)
	if err != nil {
		return model.Transaction{}, err
	}
	out := model.Transaction{
		ID:              t.ID,
		Account:         t.Account,
		Date:            date,
		Amount:          t.Amount,
		Payee:           t.Payee,
		ImportedPayee:   t.ImportedPayee,
		Category:        t.Category,
		Notes:           t.Notes,
		ImportedID:      t.ImportedID,
		Cleared:         t.Cleared,
		Reconciled:      t.Reconciled,
		StartingBalance: t.StartingBalance,
	}
	for _, sub := range t.Subtransactions {
		s, err := transactionIn(sub)
		if err != nil {
			return model.Transaction{}, err
		}
		out.Subtransactions = append(out.Subtransactions, s)
	}
	return out, nil
}
