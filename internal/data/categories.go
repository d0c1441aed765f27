package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/budgetsync/internal/model"
)

// ErrTransferRequired is returned when deleting an income category
// without naming where its transactions should go.
var ErrTransferRequired = errors.New("a transfer category is required")

// CategoryGroups returns live groups with their categories.
func (db *DB) CategoryGroups(ctx context.Context) ([]model.CategoryGroup, error) {
	return db.store.CategoryGroups(ctx)
}

// Categories returns live categories.
func (db *DB) Categories(ctx context.Context) ([]model.Category, error) {
	return db.store.Categories(ctx)
}

// Category returns a live category.
func (db *DB) Category(ctx context.Context, id string) (model.Category, error) {
	c, err := db.store.Category(ctx, id)
	if err != nil {
		return c, notFound("category", id, err)
	}
	if c.Tombstone {
		return c, fmt.Errorf("category %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// CategoryGroup returns a live group without its categories.
func (db *DB) CategoryGroup(ctx context.Context, id string) (model.CategoryGroup, error) {
	g, err := db.store.CategoryGroup(ctx, id)
	if err != nil {
		return g, notFound("category group", id, err)
	}
	if g.Tombstone {
		return g, fmt.Errorf("category group %q: %w", id, ErrNotFound)
	}
	return g, nil
}

// InsertCategoryGroup creates a group and returns its id.
func (db *DB) InsertCategoryGroup(ctx context.Context, g model.CategoryGroup) (string, error) {
	if g.ID == "" {
		g.ID = db.ids.NewID()
	}
	if g.SortOrder == 0 {
		groups, err := db.store.CategoryGroups(ctx)
		if err != nil {
			return "", err
		}
		for _, e := range groups {
			g.SortOrder = max(g.SortOrder, e.SortOrder)
		}
		g.SortOrder += sortGap
	}
	err := db.send.Update(ctx, "category_groups", g.ID, map[string]any{
		"name":       g.Name,
		"is_income":  g.IsIncome,
		"hidden":     g.Hidden,
		"sort_order": g.SortOrder,
	})
	if err != nil {
		return "", fmt.Errorf("insert category group: %w", err)
	}
	return g.ID, nil
}

// UpdateCategoryGroup writes the given group columns.
func (db *DB) UpdateCategoryGroup(ctx context.Context, id string, fields map[string]any) error {
	if _, err := db.CategoryGroup(ctx, id); err != nil {
		return err
	}
	return db.send.Update(ctx, "category_groups", id, fields)
}

// DeleteCategoryGroup tombstones a group and every category in it. With
// transferTo set, the categories' transactions and budgets move there.
func (db *DB) DeleteCategoryGroup(ctx context.Context, id, transferTo string) error {
	if _, err := db.CategoryGroup(ctx, id); err != nil {
		return err
	}
	cats, err := db.store.Categories(ctx)
	if err != nil {
		return err
	}
	return db.Batch(ctx, func(ctx context.Context) error {
		for _, c := range cats {
			if c.Group != id {
				continue
			}
			if err := db.deleteCategory(ctx, c, transferTo); err != nil {
				return err
			}
		}
		return db.send.Delete(ctx, "category_groups", id)
	})
}

// InsertCategory creates a category in an existing group and returns its
// id. The category inherits the group's income flag.
func (db *DB) InsertCategory(ctx context.Context, c model.Category) (string, error) {
	g, err := db.CategoryGroup(ctx, c.Group)
	if err != nil {
		return "", err
	}
	if c.ID == "" {
		c.ID = db.ids.NewID()
	}
	if c.SortOrder == 0 {
		cats, err := db.store.Categories(ctx)
		if err != nil {
			return "", err
		}
		for _, e := range cats {
			if e.Group == c.Group {
				c.SortOrder = max(c.SortOrder, e.SortOrder)
			}
		}
		c.SortOrder += sortGap
	}
	err = db.send.Update(ctx, "categories", c.ID, map[string]any{
		"name":       c.Name,
		"cat_group":  c.Group,
		"is_income":  g.IsIncome,
		"hidden":     c.Hidden,
		"sort_order": c.SortOrder,
	})
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

// UpdateCategory writes the given category columns.
func (db *DB) UpdateCategory(ctx context.Context, id string, fields map[string]any) error {
	if _, err := db.Category(ctx, id); err != nil {
		return err
	}
	return db.send.Update(ctx, "categories", id, fields)
}

// DeleteCategory tombstones a category. With transferTo set, its
// transactions are recategorised and its budgeted amounts are added to the
// target's. Income categories require a transfer target when they have
// transactions.
func (db *DB) DeleteCategory(ctx context.Context, id, transferTo string) error {
	c, err := db.Category(ctx, id)
	if err != nil {
		return err
	}
	if transferTo != "" {
		if _, err := db.Category(ctx, transferTo); err != nil {
			return err
		}
	}
	return db.Batch(ctx, func(ctx context.Context) error {
		return db.deleteCategory(ctx, c, transferTo)
	})
}

func (db *DB) deleteCategory(ctx context.Context, c model.Category, transferTo string) error {
	rows, err := db.store.QueryTransactions(ctx, "category = ?", c.ID)
	if err != nil {
		return err
	}
	if c.IsIncome && transferTo == "" && len(rows) > 0 {
		return ErrTransferRequired
	}
	for _, t := range rows {
		if err := db.send.Update(ctx, "transactions", t.ID, map[string]any{"category": nullable(transferTo)}); err != nil {
			return err
		}
	}

	if transferTo != "" {
		if err := db.mergeBudgets(ctx, c.ID, transferTo); err != nil {
			return err
		}
	}
	return db.send.Delete(ctx, "categories", c.ID)
}

// mergeBudgets adds every budgeted amount of from onto to, month by month,
// and zeroes from.
func (db *DB) mergeBudgets(ctx context.Context, from, to string) error {
	months, err := db.store.BudgetMonths(ctx)
	if err != nil {
		return err
	}
	for _, month := range months {
		cells, err := db.store.BudgetCells(ctx, month)
		if err != nil {
			return err
		}
		var moved, existing int64
		for _, cell := range cells {
			switch cell.Category {
			case from:
				moved = cell.Amount
			case to:
				existing = cell.Amount
			}
		}
		if moved == 0 {
			continue
		}
		if err := db.SetBudget(ctx, month, to, existing+moved); err != nil {
			return err
		}
		if err := db.SetBudget(ctx, month, from, 0); err != nil {
			return err
		}
	}
	return nil
}
