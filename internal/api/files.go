package api

import (
	"context"
	"errors"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/mutator"
)

// idKinds maps external entity kinds to the tables IDByName searches.
var idKinds = map[string]string{
	"accounts":        "accounts",
	"payees":          "payees",
	"categories":      "categories",
	"category_groups": "category_groups",
	"categoryGroups":  "category_groups",
}

// Budgets lists the budgets in the data directory.
func (s *Server) Budgets(ctx context.Context) ([]budget.Info, error) {
	infos, err := s.budgets.List(ctx)
	if infos == nil && err == nil {
		infos = []budget.Info{}
	}
	return infos, err
}

// CurrentBudget describes the open budget. ok is false when none is open.
func (s *Server) CurrentBudget() (info budget.Info, ok bool) {
	b := s.budgets.Current()
	if b == nil {
		return budget.Info{}, false
	}
	return b.Info, true
}

// LoadBudget opens a budget in place of the current one.
func (s *Server) LoadBudget(ctx context.Context, id string) error {
	if id == "" {
		return preconditionf("load-budget: id is required")
	}
	return s.exclusive(ctx, func(ctx context.Context) error {
		if err := s.closeBudget(ctx); err != nil {
			return err
		}
		_, err := s.budgets.Load(ctx, id)
		return err
	})
}

// CloseBudget closes the current budget. An open batch is rolled back.
func (s *Server) CloseBudget(ctx context.Context) error {
	return s.exclusive(ctx, s.closeBudget)
}

// CreateBudget creates a seeded budget, opens it, and uploads it unless
// avoidUpload is set.
func (s *Server) CreateBudget(ctx context.Context, name string, avoidUpload bool) (budget.Info, error) {
	var info budget.Info
	err := s.exclusive(ctx, func(ctx context.Context) error {
		if err := s.closeBudget(ctx); err != nil {
			return err
		}
		b, err := s.budgets.Create(ctx, name, budget.CreateOptions{AvoidUpload: avoidUpload})
		if err != nil {
			return err
		}
		info = b.Info
		return nil
	})
	return info, err
}

// IDByName resolves a display name to an id. Kind is accounts, payees,
// categories or category_groups.
func (s *Server) IDByName(ctx context.Context, kind, name string) (string, error) {
	b, err := s.current()
	if err != nil {
		return "", err
	}
	table, ok := idKinds[kind]
	if !ok {
		return "", preconditionf("get-id-by-name: unknown kind %q", kind)
	}
	id, err := b.DB.IDByName(ctx, table, name)
	if errors.Is(err, data.ErrNotFound) {
		return "", preconditionf("get-id-by-name: no %s named %q", kind, name)
	}
	return id, err
}

// exclusive runs fn on the runner so file lifecycle changes never overlap
// a mutation.
func (s *Server) exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.runner.Run(ctx, fn, mutator.WithUndoDisabled())
}

// closeBudget rolls back any open batch and closes the current budget,
// announcing the close when one was open.
func (s *Server) closeBudget(ctx context.Context) error {
	if s.budgets.Current() == nil {
		return nil
	}
	s.rejectBatch(errBudgetClosed)
	if err := s.budgets.Close(ctx); err != nil {
		return err
	}
	s.announce(ctx, EventBudgetClosed)
	return nil
}
