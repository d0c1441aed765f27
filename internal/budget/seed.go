package budget

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Groups []seedGroup `yaml:"groups"`
}

type seedGroup struct {
	Name       string   `yaml:"name"`
	IsIncome   bool     `yaml:"is_income"`
	Categories []string `yaml:"categories"`
}

func loadSeed() (seedFile, error) {
	var s seedFile
	if err := yaml.Unmarshal(seedYAML, &s); err != nil {
		return s, fmt.Errorf("parse seed categories: %w", err)
	}
	return s, nil
}

// seedCategories creates the default category groups in one store
// transaction. Categories look up their group, so the writes cannot be
// buffered in a message batch.
func seedCategories(ctx context.Context, db *data.DB) error {
	seed, err := loadSeed()
	if err != nil {
		return err
	}
	return db.Store().Transaction(ctx, func(ctx context.Context) error {
		for _, g := range seed.Groups {
			gid, err := db.InsertCategoryGroup(ctx, model.CategoryGroup{Name: g.Name, IsIncome: g.IsIncome})
			if err != nil {
				return err
			}
			for _, name := range g.Categories {
				if _, err := db.InsertCategory(ctx, model.Category{Name: name, Group: gid}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
