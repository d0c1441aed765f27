package api

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/metrics"
	"github.com/roach88/budgetsync/internal/mutator"
)

// Event names pushed to connected clients.
const (
	EventSync         = "sync-event"
	EventStartImport  = "start-import"
	EventFinishImport = "finish-import"
	EventShowBudgets  = "show-budgets"
	EventBudgetClosed = "budget-closed"
)

const tracerName = "github.com/roach88/budgetsync/internal/api"

// Broadcaster pushes named events to live client connections.
// Implemented by connection.Hub.
type Broadcaster interface {
	NumClients() int
	Send(ctx context.Context, name string, payload any) error
}

// Server owns the batch token and the import flag, and serves every
// operation against the manager's current budget.
//
// Thread-safety: all methods are safe for concurrent use. Mutating
// operations are serialised by the runner.
type Server struct {
	budgets *budget.Manager
	hub     Broadcaster
	runner  *mutator.Runner
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	ownRunner bool

	// stripSeeds empties a freshly created budget at import start.
	stripSeeds func(ctx context.Context, b *budget.Budget) error

	mu        sync.Mutex
	batch     *batchToken
	importing bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the collectors updated by the envelope, batches and
// imports. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithRunner shares a mutation runner with other writers. The caller keeps
// ownership and must stop it.
func WithRunner(r *mutator.Runner) Option {
	return func(s *Server) {
		s.runner = r
	}
}

// NewServer creates a server over a budget manager and a broadcaster.
func NewServer(budgets *budget.Manager, hub Broadcaster, opts ...Option) *Server {
	s := &Server{
		budgets: budgets,
		hub:     hub,
		tracer:  otel.Tracer(tracerName),
		logger:  slog.Default(),

		stripSeeds: stripSeedCategories,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = mutator.NewRunner(mutator.WithLogger(s.logger))
		s.ownRunner = true
	}
	return s
}

// Importing reports whether import mode is active.
func (s *Server) Importing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importing
}

// BatchOpen reports whether a batch is open.
func (s *Server) BatchOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch != nil
}

// Shutdown rolls back any open batch, closes the current budget and stops
// the runner if the server created it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rejectBatch(errShutdown)
	err := s.budgets.Close(ctx)
	if s.ownRunner {
		s.runner.Stop()
	}
	return err
}

// current returns the loaded budget or a precondition error.
func (s *Server) current() (*budget.Budget, error) {
	b := s.budgets.Current()
	if b == nil {
		return nil, preconditionf("No budget file is open")
	}
	return b, nil
}
