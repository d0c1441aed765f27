package api

import (
	"context"
	"strings"

	"github.com/roach88/budgetsync/internal/budget"
)

// CategoryGroups returns every live group with its categories.
func (s *Server) CategoryGroups(ctx context.Context) ([]CategoryGroup, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.CategoryGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryGroup, 0, len(rows))
	for _, g := range rows {
		out = append(out, groupOut(g))
	}
	return out, nil
}

// Categories returns every live category.
func (s *Server) Categories(ctx context.Context) ([]Category, error) {
	b, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryOut(c))
	}
	return out, nil
}

// CreateCategoryGroup creates a group and returns its id.
func (s *Server) CreateCategoryGroup(ctx context.Context, g CategoryGroup) (string, error) {
	if strings.TrimSpace(g.Name) == "" {
		return "", preconditionf("category-group-create: name is required")
	}
	return mutate(ctx, s, "category-group-create", func(ctx context.Context, b *budget.Budget) (string, error) {
		return b.DB.InsertCategoryGroup(ctx, groupIn(g))
	})
}

// UpdateCategoryGroup applies a partial edit.
func (s *Server) UpdateCategoryGroup(ctx context.Context, id string, fields GroupFields) error {
	return mutateErr(ctx, s, "category-group-update", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.UpdateCategoryGroup(ctx, id, fields.columns())
	})
}

// DeleteCategoryGroup deletes a group and its categories, moving their
// transactions and budgets to transferTo when set.
func (s *Server) DeleteCategoryGroup(ctx context.Context, id, transferTo string) error {
	return mutateErr(ctx, s, "category-group-delete", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.DeleteCategoryGroup(ctx, id, transferTo)
	})
}

// CreateCategory creates a category in an existing group and returns its
// id.
func (s *Server) CreateCategory(ctx context.Context, c Category) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", preconditionf("category-create: name is required")
	}
	if c.GroupID == "" {
		return "", preconditionf("category-create: group_id is required")
	}
	return mutate(ctx, s, "category-create", func(ctx context.Context, b *budget.Budget) (string, error) {
		return b.DB.InsertCategory(ctx, categoryIn(c))
	})
}

// UpdateCategory applies a partial edit.
func (s *Server) UpdateCategory(ctx context.Context, id string, fields CategoryFields) error {
	return mutateErr(ctx, s, "category-update", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.UpdateCategory(ctx, id, fields.columns())
	})
}

// DeleteCategory deletes a category, moving its transactions and budgets
// to transferTo when set.
func (s *Server) DeleteCategory(ctx context.Context, id, transferTo string) error {
	return mutateErr(ctx, s, "category-delete", func(ctx context.Context, b *budget.Budget) error {
		return b.DB.DeleteCategory(ctx, id, transferTo)
	})
}
