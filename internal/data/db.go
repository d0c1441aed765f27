// Package data holds the persistence handlers for budget entities.
//
// Handlers read through the budget's store and write by sending change
// messages, so every write lands in the change log (or skips it in import
// mode) without the handlers knowing which.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/budgetsync/internal/messages"
	"github.com/roach88/budgetsync/internal/store"
)

// sortGap separates consecutive sort_order values so rows can be moved
// between neighbours without renumbering.
const sortGap = 16384

// ErrNotFound is returned when a referenced row does not exist or has been
// deleted.
var ErrNotFound = errors.New("not found")

// IDGenerator issues ids for new rows.
// Implemented by UUIDGenerator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGenerator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DB is the handler set for one open budget file.
type DB struct {
	store *store.Store
	send  *messages.Sender
	ids   IDGenerator
	now   func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(db *DB) {
		db.ids = g
	}
}

// WithNow replaces the wall clock used for default dates.
func WithNow(fn func() time.Time) Option {
	return func(db *DB) {
		db.now = fn
	}
}

// New creates handlers over a store and its sender.
func New(s *store.Store, sender *messages.Sender, opts ...Option) *DB {
	db := &DB{store: s, send: sender, ids: UUIDGenerator{}, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Store returns the underlying store for reads.
func (db *DB) Store() *store.Store {
	return db.store
}

// Sender returns the sender used for writes.
func (db *DB) Sender() *messages.Sender {
	return db.send
}

// Batch groups every write made by fn into one applied set of messages.
func (db *DB) Batch(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.send.Batch(ctx, fn)
}

// today returns the current date as YYYYMMDD.
func (db *DB) today() int {
	t := db.now().UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// notFound maps a store miss to ErrNotFound with context.
func notFound(kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return err
}

// nullable turns an empty id reference into SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
