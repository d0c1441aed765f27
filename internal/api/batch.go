package api

import (
	"context"
	"errors"

	"github.com/roach88/budgetsync/internal/budget"
)

var (
	errShutdown      = errors.New("server shut down")
	errBudgetClosed  = errors.New("budget closed with a batch open")
	errImportAborted = errors.New("import aborted")
)

// Batch scope kinds, also used as metric labels.
const (
	batchMessages    = "messages"
	batchTransaction = "transaction"
)

// batchToken is the open batch. The scope goroutine blocks on release and
// reports the scope's outcome on done.
type batchToken struct {
	kind    string
	since   string
	release chan error
	done    chan error
}

// BatchStart opens a batch. Until BatchEnd, every operation's writes join
// one scope: buffered change messages normally, a raw storage transaction
// in import mode.
func (s *Server) BatchStart(ctx context.Context) error {
	if _, err := s.current(); err != nil {
		return err
	}
	// Opening the scope on the runner keeps it from interleaving with a
	// mutation that is halfway through its own message batch.
	return s.runner.Run(ctx, func(ctx context.Context) error {
		b, err := s.current()
		if err != nil {
			return err
		}

		s.mu.Lock()
		if s.batch != nil {
			s.mu.Unlock()
			return preconditionf("Cannot start a batch process: batch already started")
		}
		tok := &batchToken{
			kind:    batchMessages,
			since:   b.Clock.Now().String(),
			release: make(chan error, 1),
			done:    make(chan error, 1),
		}
		if s.importing {
			tok.kind = batchTransaction
		}
		s.batch = tok
		s.mu.Unlock()

		if err := s.openScope(context.WithoutCancel(ctx), b, tok); err != nil {
			s.mu.Lock()
			if s.batch == tok {
				s.batch = nil
			}
			s.mu.Unlock()
			return err
		}
		s.metrics.BatchStarted()
		s.logger.Debug("batch started", "kind", tok.kind, "budget", b.ID)
		return nil
	})
}

// openScope starts the goroutine that holds the batch scope open and waits
// until the scope is entered or has failed to open.
func (s *Server) openScope(ctx context.Context, b *budget.Budget, tok *batchToken) error {
	entered := make(chan struct{})
	scope := func(context.Context) error {
		close(entered)
		return <-tok.release
	}
	go func() {
		if tok.kind == batchTransaction {
			tok.done <- b.Store.AsyncTransaction(ctx, scope)
			return
		}
		tok.done <- b.DB.Batch(ctx, scope)
	}()

	select {
	case <-entered:
		return nil
	case err := <-tok.done:
		return err
	}
}

// BatchEnd closes the open batch, waits for its scope to commit and
// returns the commit error. Every dataset written since BatchStart is
// announced once.
func (s *Server) BatchEnd(ctx context.Context) error {
	s.mu.Lock()
	tok := s.batch
	s.mu.Unlock()
	if tok == nil {
		return preconditionf("Cannot end a batch process: no batch started")
	}

	_, err := envelope(ctx, s, "batch-end", tok.since, func(ctx context.Context, b *budget.Budget) (struct{}, error) {
		s.mu.Lock()
		if s.batch != tok {
			s.mu.Unlock()
			return struct{}{}, preconditionf("Cannot end a batch process: no batch started")
		}
		s.batch = nil
		s.mu.Unlock()

		tok.release <- nil
		err := <-tok.done
		s.metrics.BatchEnded(tok.kind, err)
		s.logger.Debug("batch ended", "kind", tok.kind, "budget", b.ID, "error", err)
		return struct{}{}, err
	})
	return err
}

// rejectBatch rolls back the open batch, if any.
func (s *Server) rejectBatch(cause error) {
	_ = s.settleBatch(cause)
}

// settleBatch closes the open batch, if any, committing it when cause is
// nil and rolling it back otherwise. It returns the scope's outcome.
func (s *Server) settleBatch(cause error) error {
	s.mu.Lock()
	tok := s.batch
	s.batch = nil
	s.mu.Unlock()
	if tok == nil {
		return nil
	}

	tok.release <- cause
	err := <-tok.done
	s.metrics.BatchEnded(tok.kind, err)
	if cause != nil {
		s.logger.Warn("batch rolled back", "kind", tok.kind, "cause", cause)
	}
	return err
}
