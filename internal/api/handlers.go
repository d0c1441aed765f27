package api

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/query"
)

// HandlerFunc serves one operation: it decodes JSON arguments and returns
// a JSON-encodable result.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

type (
	noArgs    struct{}
	idArgs    struct{ ID string `json:"id"` }
	monthArgs struct{ Month string `json:"month"` }

	amountArgs struct {
		Month      string `json:"month"`
		CategoryID string `json:"categoryId"`
		Amount     int64  `json:"amount"`
	}
	carryoverArgs struct {
		Month      string `json:"month"`
		CategoryID string `json:"categoryId"`
		Flag       bool   `json:"flag"`
	}
	holdArgs struct {
		Month  string `json:"month"`
		Amount int64  `json:"amount"`
	}
	importArgs struct {
		BudgetName string `json:"budgetName"`
	}
	addTransactionsArgs struct {
		AccountID    string        `json:"accountId"`
		Transactions []Transaction `json:"transactions"`
		RunTransfers bool          `json:"runTransfers,omitempty"`
	}
	importTransactionsArgs struct {
		AccountID    string        `json:"accountId"`
		Transactions []Transaction `json:"transactions"`
		IsPreview    bool          `json:"isPreview,omitempty"`
	}
	updateTransactionArgs struct {
		ID     string            `json:"id"`
		Fields TransactionFields `json:"fields"`
	}
	updateAccountArgs struct {
		ID     string        `json:"id"`
		Fields AccountFields `json:"fields"`
	}
	balanceArgs struct {
		ID     string `json:"id"`
		Cutoff string `json:"cutoff,omitempty"`
	}
	updateGroupArgs struct {
		ID     string      `json:"id"`
		Fields GroupFields `json:"fields"`
	}
	updateCategoryArgs struct {
		ID     string         `json:"id"`
		Fields CategoryFields `json:"fields"`
	}
	deleteWithTransferArgs struct {
		ID         string `json:"id"`
		TransferID string `json:"transferCategoryId,omitempty"`
	}
	updatePayeeArgs struct {
		ID     string      `json:"id"`
		Fields PayeeFields `json:"fields"`
	}
	mergePayeesArgs struct {
		TargetID string   `json:"targetId"`
		MergeIDs []string `json:"mergeIds"`
	}
	payeeRulesArgs struct {
		PayeeID string `json:"payeeId"`
	}
	idByNameArgs struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	createBudgetArgs struct {
		BudgetName  string `json:"budgetName"`
		AvoidUpload bool   `json:"avoidUpload,omitempty"`
	}
)

// Handlers returns every operation keyed by name.
func (s *Server) Handlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"batch-start": handleErr(func(ctx context.Context, _ noArgs) error {
			return s.BatchStart(ctx)
		}),
		"batch-end": handleErr(func(ctx context.Context, _ noArgs) error {
			return s.BatchEnd(ctx)
		}),
		"start-import": handleErr(func(ctx context.Context, a importArgs) error {
			return s.StartImport(ctx, a.BudgetName)
		}),
		"finish-import": handleErr(func(ctx context.Context, _ noArgs) error {
			return s.FinishImport(ctx)
		}),
		"abort-import": handleErr(func(ctx context.Context, _ noArgs) error {
			return s.AbortImport(ctx)
		}),

		"budget-months": handle(func(ctx context.Context, _ noArgs) ([]string, error) {
			return s.BudgetMonths(ctx)
		}),
		"budget-month": handle(func(ctx context.Context, a monthArgs) (MonthSummary, error) {
			return s.BudgetMonth(ctx, a.Month)
		}),
		"budget-set-amount": handleErr(func(ctx context.Context, a amountArgs) error {
			return s.SetBudgetAmount(ctx, a.Month, a.CategoryID, a.Amount)
		}),
		"budget-set-carryover": handleErr(func(ctx context.Context, a carryoverArgs) error {
			return s.SetCarryover(ctx, a.Month, a.CategoryID, a.Flag)
		}),
		"budget-hold-for-next-month": handle(func(ctx context.Context, a holdArgs) (bool, error) {
			return s.HoldForNextMonth(ctx, a.Month, a.Amount)
		}),
		"budget-reset-hold": handleErr(func(ctx context.Context, a monthArgs) error {
			return s.ResetHold(ctx, a.Month)
		}),
		"budget-copy-last-month": handleErr(func(ctx context.Context, a monthArgs) error {
			return s.CopyLastMonth(ctx, a.Month)
		}),
		"budget-set-zero": handleErr(func(ctx context.Context, a monthArgs) error {
			return s.SetZero(ctx, a.Month)
		}),

		"transactions-get": handle(func(ctx context.Context, f query.TransactionFilter) ([]Transaction, error) {
			return s.Transactions(ctx, f)
		}),
		"transactions-add": handle(func(ctx context.Context, a addTransactionsArgs) ([]string, error) {
			return s.AddTransactions(ctx, a.AccountID, a.Transactions, a.RunTransfers)
		}),
		"transactions-import": handle(func(ctx context.Context, a importTransactionsArgs) (ImportResult, error) {
			return s.ImportTransactions(ctx, a.AccountID, a.Transactions, a.IsPreview)
		}),
		"transaction-update": handle(func(ctx context.Context, a updateTransactionArgs) ([]Transaction, error) {
			return s.UpdateTransaction(ctx, a.ID, a.Fields)
		}),
		"transaction-delete": handle(func(ctx context.Context, a idArgs) ([]Transaction, error) {
			return s.DeleteTransaction(ctx, a.ID)
		}),
		"transactions-export": handle(func(ctx context.Context, f query.TransactionFilter) (string, error) {
			return s.ExportTransactions(ctx, f)
		}),

		"accounts-get": handle(func(ctx context.Context, _ noArgs) ([]Account, error) {
			return s.Accounts(ctx)
		}),
		"account-create": handle(func(ctx context.Context, a NewAccount) (string, error) {
			return s.CreateAccount(ctx, a)
		}),
		"account-update": handleErr(func(ctx context.Context, a updateAccountArgs) error {
			return s.UpdateAccount(ctx, a.ID, a.Fields)
		}),
		"account-close": handleErr(func(ctx context.Context, a CloseAccount) error {
			return s.CloseAccount(ctx, a)
		}),
		"account-reopen": handleErr(func(ctx context.Context, a idArgs) error {
			return s.ReopenAccount(ctx, a.ID)
		}),
		"account-delete": handleErr(func(ctx context.Context, a idArgs) error {
			return s.DeleteAccount(ctx, a.ID)
		}),
		"account-balance": handle(func(ctx context.Context, a balanceArgs) (int64, error) {
			return s.AccountBalance(ctx, a.ID, a.Cutoff)
		}),

		"categories-get": handle(func(ctx context.Context, _ noArgs) ([]Category, error) {
			return s.Categories(ctx)
		}),
		"category-groups-get": handle(func(ctx context.Context, _ noArgs) ([]CategoryGroup, error) {
			return s.CategoryGroups(ctx)
		}),
		"category-group-create": handle(func(ctx context.Context, g CategoryGroup) (string, error) {
			return s.CreateCategoryGroup(ctx, g)
		}),
		"category-group-update": handleErr(func(ctx context.Context, a updateGroupArgs) error {
			return s.UpdateCategoryGroup(ctx, a.ID, a.Fields)
		}),
		"category-group-delete": handleErr(func(ctx context.Context, a deleteWithTransferArgs) error {
			return s.DeleteCategoryGroup(ctx, a.ID, a.TransferID)
		}),
		"category-create": handle(func(ctx context.Context, c Category) (string, error) {
			return s.CreateCategory(ctx, c)
		}),
		"category-update": handleErr(func(ctx context.Context, a updateCategoryArgs) error {
			return s.UpdateCategory(ctx, a.ID, a.Fields)
		}),
		"category-delete": handleErr(func(ctx context.Context, a deleteWithTransferArgs) error {
			return s.DeleteCategory(ctx, a.ID, a.TransferID)
		}),

		"payees-get": handle(func(ctx context.Context, _ noArgs) ([]Payee, error) {
			return s.Payees(ctx)
		}),
		"payee-create": handle(func(ctx context.Context, p Payee) (string, error) {
			return s.CreatePayee(ctx, p)
		}),
		"payee-update": handleErr(func(ctx context.Context, a updatePayeeArgs) error {
			return s.UpdatePayee(ctx, a.ID, a.Fields)
		}),
		"payee-delete": handleErr(func(ctx context.Context, a idArgs) error {
			return s.DeletePayee(ctx, a.ID)
		}),
		"payees-merge": handleErr(func(ctx context.Context, a mergePayeesArgs) error {
			return s.MergePayees(ctx, a.TargetID, a.MergeIDs)
		}),

		"rules-get": handle(func(ctx context.Context, _ noArgs) ([]Rule, error) {
			return s.Rules(ctx)
		}),
		"payee-rules-get": handle(func(ctx context.Context, a payeeRulesArgs) ([]Rule, error) {
			return s.PayeeRules(ctx, a.PayeeID)
		}),
		"rule-create": handle(func(ctx context.Context, r Rule) (Rule, error) {
			return s.CreateRule(ctx, r)
		}),
		"rule-update": handle(func(ctx context.Context, r Rule) (Rule, error) {
			return s.UpdateRule(ctx, r)
		}),
		"rule-delete": handleErr(func(ctx context.Context, a idArgs) error {
			return s.DeleteRule(ctx, a.ID)
		}),

		"get-id-by-name": handle(func(ctx context.Context, a idByNameArgs) (string, error) {
			return s.IDByName(ctx, a.Type, a.Name)
		}),
		"budgets-get": handle(func(ctx context.Context, _ noArgs) ([]budget.Info, error) {
			return s.Budgets(ctx)
		}),
		"load-budget": handleErr(func(ctx context.Context, a idArgs) error {
			return s.LoadBudget(ctx, a.ID)
		}),
		"close-budget": handleErr(func(ctx context.Context, _ noArgs) error {
			return s.CloseBudget(ctx)
		}),
		"create-budget": handle(func(ctx context.Context, a createBudgetArgs) (budget.Info, error) {
			return s.CreateBudget(ctx, a.BudgetName, a.AvoidUpload)
		}),
	}
}

// Call runs the named operation with JSON arguments.
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := s.Handlers()[name]
	if !ok {
		return nil, preconditionf("unknown operation %q", name)
	}
	return h(ctx, args)
}

// Operations lists the operation names in order.
func (s *Server) Operations() []string {
	hs := s.Handlers()
	names := make([]string, 0, len(hs))
	for name := range hs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func handle[P, R any](fn func(ctx context.Context, args P) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args P
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

func handleErr[P any](fn func(ctx context.Context, args P) error) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args P
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return nil, fn(ctx, args)
	}
}

// decodeArgs decodes strictly: unknown fields are rejected. Empty input
// leaves args zero.
func decodeArgs(raw json.RawMessage, args any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(args); err != nil {
		return &Error{Code: ErrCodePrecondition, Message: "invalid arguments: " + err.Error(), Err: err}
	}
	return nil
}
