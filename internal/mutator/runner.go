package mutator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Run after Stop has been called.
var ErrStopped = errors.New("mutator: runner stopped")

type activeKey struct{}

// mutation is the per-call state carried in the context of a running
// mutation.
type mutation struct {
	undo  bool
	group *UndoGroup
}

// Runner serialises mutations through a single writer goroutine.
//
// Thread-safety model:
//   - Run(): safe from any goroutine
//   - Stop(): safe from any goroutine, idempotent
//
// The writer goroutine is started on the first call to Run.
type Runner struct {
	queue  *jobQueue
	undo   *UndoLog
	logger *slog.Logger

	start sync.Once
	wg    sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for mutation failures.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates an idle runner with an empty undo log.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		queue:  newJobQueue(),
		undo:   &UndoLog{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOption configures a single mutation.
type RunOption func(*mutation)

// WithUndoDisabled keeps the mutation's messages out of the undo log.
func WithUndoDisabled() RunOption {
	return func(m *mutation) {
		m.undo = false
	}
}

// Run executes fn as a mutation and returns its error.
//
// Calls from outside a mutation are queued and run in FIFO order by the
// writer goroutine; Run blocks until fn has finished. Calls made from
// inside a running mutation execute fn inline and inherit the outer
// mutation's undo setting unless they disable undo themselves.
//
// A queued mutation whose context is cancelled before it starts is skipped
// and Run returns the context error. Once fn starts it runs to completion.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error, opts ...RunOption) error {
	if outer, ok := ctx.Value(activeKey{}).(*mutation); ok {
		inner := &mutation{undo: outer.undo, group: outer.group}
		for _, opt := range opts {
			opt(inner)
		}
		return fn(context.WithValue(ctx, activeKey{}, inner))
	}

	m := &mutation{undo: true}
	for _, opt := range opts {
		opt(m)
	}
	m.group = &UndoGroup{}

	r.start.Do(func() {
		r.wg.Add(1)
		go r.loop()
	})

	done := make(chan error, 1)
	wrapped := func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		if m.undo && !m.group.empty() {
			r.undo.push(m.group)
		}
		return nil
	}
	if !r.queue.enqueue(job{ctx: context.WithValue(ctx, activeKey{}, m), fn: wrapped, done: done}) {
		return ErrStopped
	}
	return <-done
}

// loop is the single writer. It exits when the queue is closed.
func (r *Runner) loop() {
	defer r.wg.Done()
	for {
		if j, ok := r.queue.tryDequeue(); ok {
			r.execute(j)
			continue
		}

		<-r.queue.wait()
		// The signal channel closes with the queue, which wakes this
		// receive immediately.
		r.queue.mu.Lock()
		closed := r.queue.closed
		r.queue.mu.Unlock()
		if closed && r.queue.len() == 0 {
			return
		}
	}
}

func (r *Runner) execute(j job) {
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}
	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("mutation panicked: %v", p)
			}
		}()
		err = j.fn(j.ctx)
	}()
	if err != nil {
		r.logger.Debug("mutation failed", "error", err)
	}
	j.done <- err
}

// Stop closes the queue, fails any mutations that have not started, and
// waits for the writer goroutine to exit.
func (r *Runner) Stop() {
	for _, j := range r.queue.close() {
		j.done <- ErrStopped
	}
	r.wg.Wait()
}

// Undo returns the runner's undo log.
func (r *Runner) Undo() *UndoLog {
	return r.undo
}

// Active reports whether ctx belongs to a running mutation.
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(activeKey{}).(*mutation)
	return ok
}

// UndoEnabled reports whether messages sent with ctx should be recorded
// for undo. Outside a mutation it is false.
func UndoEnabled(ctx context.Context) bool {
	m, ok := ctx.Value(activeKey{}).(*mutation)
	return ok && m.undo
}
