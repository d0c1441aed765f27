// Package messages turns row edits into change-log messages and applies
// them to a budget file.
//
// Every edit becomes one message per column, stamped by the budget's causal
// clock. How a message is applied depends on the sync mode: normally it is
// written to its table and appended to the change log; in import mode the
// change log is skipped.
package messages

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/budgetsync/internal/clock"
	"github.com/roach88/budgetsync/internal/mutator"
	"github.com/roach88/budgetsync/internal/store"
)

// Mode selects how messages are recorded.
type Mode int

const (
	// ModeEnabled applies messages and logs them for sync.
	ModeEnabled Mode = iota
	// ModeImport applies messages without touching the change log.
	ModeImport
	// ModeDisabled logs messages locally but never schedules a sync.
	ModeDisabled
)

func (m Mode) String() string {
	switch m {
	case ModeEnabled:
		return "enabled"
	case ModeImport:
		return "import"
	case ModeDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Observer is told about every set of messages after it has been applied.
type Observer func(ctx context.Context, msgs []store.Message)

// Sender stamps and applies messages for one budget file.
//
// Thread-safety: all methods are safe for concurrent use.
type Sender struct {
	store *store.Store
	clock *clock.Clock

	mu        sync.Mutex
	mode      Mode
	batching  bool
	buffered  []store.Message
	observers []Observer
}

// NewSender creates a sender in ModeEnabled.
func NewSender(s *store.Store, c *clock.Clock) *Sender {
	return &Sender{store: s, clock: c}
}

// Clock returns the clock that stamps this sender's messages.
func (s *Sender) Clock() *clock.Clock {
	return s.clock
}

// SetMode switches the sync mode for messages sent from now on.
func (s *Sender) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Mode returns the current sync mode.
func (s *Sender) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Observe registers fn to run after each applied set of messages.
func (s *Sender) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Send stamps msgs with fresh timestamps and applies them. While a batch
// is open the messages are held until the batch ends.
func (s *Sender) Send(ctx context.Context, msgs ...store.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stamped := make([]store.Message, len(msgs))
	for i, m := range msgs {
		m.Timestamp = s.clock.Send().String()
		stamped[i] = m
	}
	mutator.Record(ctx, stamped...)

	s.mu.Lock()
	if s.batching {
		s.buffered = append(s.buffered, stamped...)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.apply(ctx, stamped)
}

func (s *Sender) apply(ctx context.Context, msgs []store.Message) error {
	s.mu.Lock()
	record := s.mode != ModeImport
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	if err := s.store.ApplyMessages(ctx, msgs, record); err != nil {
		return err
	}
	for _, fn := range observers {
		fn(ctx, msgs)
	}
	return nil
}

// Batch runs fn with message application deferred: every message sent by
// any caller while fn runs is buffered and applied in one store
// transaction after fn returns nil. If fn fails the buffered messages are
// discarded. A Batch started while another is open runs fn directly and
// leaves the outer batch in charge.
func (s *Sender) Batch(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.batching {
		s.mu.Unlock()
		return fn(ctx)
	}
	s.batching = true
	s.mu.Unlock()

	fnErr := fn(ctx)

	s.mu.Lock()
	s.batching = false
	batch := s.buffered
	s.buffered = nil
	s.mu.Unlock()

	if fnErr != nil {
		return fnErr
	}
	return s.apply(ctx, batch)
}

// Batching reports whether a batch is open.
func (s *Sender) Batching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batching
}

// Update sends one message per field for a row. Fields are sent in name
// order so the resulting timestamps are reproducible.
func (s *Sender) Update(ctx context.Context, dataset, id string, fields map[string]any) error {
	return s.Send(ctx, RowMessages(dataset, id, fields)...)
}

// Delete tombstones a row.
func (s *Sender) Delete(ctx context.Context, dataset, id string) error {
	return s.Send(ctx, store.Message{Dataset: dataset, Row: id, Column: "tombstone", Value: 1})
}

// RowMessages builds unstamped messages for a row, one per field, in field
// name order.
func RowMessages(dataset, id string, fields map[string]any) []store.Message {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	msgs := make([]store.Message, 0, len(names))
	for _, k := range names {
		msgs = append(msgs, store.Message{Dataset: dataset, Row: id, Column: k, Value: fields[k]})
	}
	return msgs
}
