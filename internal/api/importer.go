package api

import (
	"context"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/messages"
)

// StartImport enters import mode: the open budget is closed, a new one
// named budgetName is created without uploading it, its seeded expense
// categories are removed, and change messages stop reaching the change
// log. If the seeds cannot be removed the new budget is deleted again and
// import mode is never entered.
func (s *Server) StartImport(ctx context.Context, budgetName string) error {
	return s.exclusive(ctx, func(ctx context.Context) error {
		if err := s.closeBudget(ctx); err != nil {
			return err
		}
		b, err := s.budgets.Create(ctx, budgetName, budget.CreateOptions{AvoidUpload: true})
		if err != nil {
			return err
		}
		if err := s.stripSeeds(ctx, b); err != nil {
			if derr := s.budgets.Delete(ctx, b.ID); derr != nil {
				s.logger.Error("failed to delete budget after failed import start", "budget", b.ID, "error", derr)
			}
			return err
		}
		b.Sender.SetMode(messages.ModeImport)

		s.announce(ctx, EventStartImport)
		s.setImporting(true)
		s.metrics.ImportTransition("start", true)
		s.logger.Info("import started", "budget", b.ID)
		return nil
	})
}

// stripSeedCategories deletes every expense category and group with raw
// statements, so the removal leaves nothing in the change log.
func stripSeedCategories(ctx context.Context, b *budget.Budget) error {
	err := b.Store.Transaction(ctx, func(ctx context.Context) error {
		if _, err := b.Store.Exec(ctx, "DELETE FROM categories WHERE is_income = 0"); err != nil {
			return err
		}
		_, err := b.Store.Exec(ctx, "DELETE FROM category_groups WHERE is_income = 0")
		return err
	})
	if err != nil {
		return err
	}
	b.Sheet.MarkCacheDirty()
	return nil
}

// FinishImport leaves import mode. Any open batch is committed, then the
// budget is reopened, which restores normal sync mode and rebuilds
// everything derived at load time, and finally uploaded. An upload failure
// is logged and otherwise ignored.
func (s *Server) FinishImport(ctx context.Context) error {
	return s.exclusive(ctx, func(ctx context.Context) error {
		b, err := s.current()
		if err != nil {
			return err
		}
		b.Sheet.MarkCacheDirty()
		if err := s.settleBatch(nil); err != nil {
			return err
		}

		b, err = s.budgets.Load(ctx, b.ID)
		if err != nil {
			return err
		}
		if _, err := b.Sheet.RecomputeBounds(ctx); err != nil {
			return err
		}
		if err := b.Sheet.WaitOnSpreadsheet(ctx); err != nil {
			return err
		}
		if err := s.budgets.Upload(ctx); err != nil {
			s.logger.Warn("upload after import failed", "budget", b.ID, "error", err)
		}

		s.announce(ctx, EventFinishImport)
		s.setImporting(false)
		s.metrics.ImportTransition("finish", false)
		s.logger.Info("import finished", "budget", b.ID)
		return nil
	})
}

// AbortImport leaves import mode and deletes the budget being imported.
// Outside import mode it does nothing. The import flag is cleared even when
// teardown fails.
func (s *Server) AbortImport(ctx context.Context) error {
	return s.exclusive(ctx, func(ctx context.Context) error {
		defer func() {
			s.setImporting(false)
			s.metrics.ImportTransition("abort", false)
		}()
		if !s.Importing() {
			return nil
		}

		b, err := s.current()
		if err != nil {
			return err
		}
		s.rejectBatch(errImportAborted)
		if err := s.budgets.Close(ctx); err != nil {
			return err
		}
		if err := s.budgets.Delete(ctx, b.ID); err != nil {
			return err
		}

		s.announce(ctx, EventShowBudgets)
		s.logger.Info("import aborted", "budget", b.ID)
		return nil
	})
}

func (s *Server) setImporting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importing = v
}
