package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/mutator"
)

// SyncEvent is the payload of a sync-event notification.
type SyncEvent struct {
	Type   string   `json:"type"`
	Tables []string `json:"tables"`
}

// mutate runs fn as an enveloped mutation against the current budget and
// returns its result unchanged.
func mutate[T any](ctx context.Context, s *Server, op string, fn func(ctx context.Context, b *budget.Budget) (T, error)) (T, error) {
	return envelope(ctx, s, op, "", fn)
}

// mutateErr is mutate for operations without a result.
func mutateErr(ctx context.Context, s *Server, op string, fn func(ctx context.Context, b *budget.Budget) error) error {
	_, err := envelope(ctx, s, op, "", func(ctx context.Context, b *budget.Budget) (struct{}, error) {
		return struct{}{}, fn(ctx, b)
	})
	return err
}

// envelope is the mutation envelope. The checkpoint is the budget clock's
// last timestamp read just before fn runs, unless since overrides it.
func envelope[T any](ctx context.Context, s *Server, op, since string, fn func(ctx context.Context, b *budget.Budget) (T, error)) (T, error) {
	var zero T
	if _, err := s.current(); err != nil {
		return zero, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("budgetsync.op", op)),
	)
	defer span.End()

	var out T
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		// The budget may have changed while the call was queued.
		b, err := s.current()
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("budgetsync.budget", b.ID))

		checkpoint := since
		if checkpoint == "" {
			checkpoint = b.Clock.Now().String()
		}
		res, err := fn(ctx, b)
		if err != nil {
			return err
		}
		out = res
		return s.notify(ctx, b, op, checkpoint, span)
	}, mutator.WithUndoDisabled())

	s.metrics.ObserveMutation(op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	return out, nil
}

// notify tells other clients which datasets changed after checkpoint.
// With one client or none connected nothing is sent. A failed delivery is
// logged and does not fail the mutation.
func (s *Server) notify(ctx context.Context, b *budget.Budget, op, checkpoint string, span trace.Span) error {
	tables, err := b.Store.DatasetsSince(ctx, checkpoint)
	if err != nil {
		return err
	}
	if tables == nil {
		tables = []string{}
	}
	span.SetAttributes(attribute.StringSlice("budgetsync.datasets", tables))

	clients := s.hub.NumClients()
	s.logger.Debug("mutation committed", "op", op, "datasets", tables, "clients", clients)
	if clients <= 1 {
		s.metrics.SyncEvent("skipped")
		return nil
	}

	if err := s.hub.Send(ctx, EventSync, SyncEvent{Type: "success", Tables: tables}); err != nil {
		s.metrics.SyncEvent("failed")
		s.logger.Warn("sync event not delivered", "op", op, "error", err)
		return nil
	}
	s.metrics.SyncEvent("sent")
	s.logger.Debug("sync event sent", "op", op, "datasets", tables)
	return nil
}

// announce pushes a lifecycle event. Delivery failures are logged only.
func (s *Server) announce(ctx context.Context, name string) {
	if err := s.hub.Send(ctx, name, nil); err != nil {
		s.logger.Warn("event not delivered", "event", name, "error", err)
	}
}
