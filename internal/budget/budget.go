// Package budget manages budget files on disk: creating, loading, closing,
// deleting and uploading them.
//
// Each budget lives in its own directory under the data directory, holding
// the SQLite file and a small metadata file. At most one budget is loaded
// at a time.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/budgetsync/internal/clock"
	"github.com/roach88/budgetsync/internal/cloud"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/messages"
	"github.com/roach88/budgetsync/internal/sheet"
	"github.com/roach88/budgetsync/internal/store"
)

const (
	dbFile       = "db.sqlite"
	metadataFile = "metadata.yaml"

	metaClockNode = "clock_node"
)

var (
	// ErrNotFound is returned for a budget id with no directory.
	ErrNotFound = errors.New("budget not found")
	// ErrNoBudget is returned when an operation needs a loaded budget.
	ErrNoBudget = errors.New("no budget is loaded")
	// ErrExists is returned when a new budget's directory is taken.
	ErrExists = errors.New("budget already exists")
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Info describes a budget on disk.
type Info struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Budget is a loaded budget file with the components built over it.
type Budget struct {
	Info
	Dir    string
	Store  *store.Store
	Clock  *clock.Clock
	Sender *messages.Sender
	DB     *data.DB
	Sheet  *sheet.Sheet
}

// Path returns the budget's SQLite file.
func (b *Budget) Path() string {
	return filepath.Join(b.Dir, dbFile)
}

// CreateOptions controls Create.
type CreateOptions struct {
	// AvoidUpload skips the initial upload of the new file.
	AvoidUpload bool
}

// Manager owns the data directory and the currently loaded budget.
//
// Thread-safety: all methods are safe for concurrent use.
type Manager struct {
	dir      string
	uploader cloud.Uploader
	logger   *slog.Logger
	suffix   func() string

	clockOpts []clock.Option
	dataOpts  []data.Option
	sheetOpts []sheet.Option

	mu      sync.Mutex
	current *Budget
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithUploader sets where budget files are uploaded.
func WithUploader(u cloud.Uploader) Option {
	return func(m *Manager) {
		m.uploader = u
	}
}

// WithIDSuffix replaces the random suffix appended to new budget ids.
func WithIDSuffix(fn func() string) Option {
	return func(m *Manager) {
		m.suffix = fn
	}
}

// WithClockOptions passes options to the clock of every loaded budget.
func WithClockOptions(opts ...clock.Option) Option {
	return func(m *Manager) {
		m.clockOpts = append(m.clockOpts, opts...)
	}
}

// WithDataOptions passes options to the handlers of every loaded budget.
func WithDataOptions(opts ...data.Option) Option {
	return func(m *Manager) {
		m.dataOpts = append(m.dataOpts, opts...)
	}
}

// WithSheetOptions passes options to the sheet of every loaded budget.
func WithSheetOptions(opts ...sheet.Option) Option {
	return func(m *Manager) {
		m.sheetOpts = append(m.sheetOpts, opts...)
	}
}

// NewManager creates a manager over a data directory.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:      dir,
		uploader: cloud.NopUploader{},
		logger:   slog.Default(),
		suffix:   func() string { return uuid.NewString()[:7] },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the data directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Current returns the loaded budget, or nil.
func (m *Manager) Current() *Budget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Create makes a new budget seeded with the default categories, loads it
// in place of any current budget, and uploads it unless told not to. An
// upload failure is logged, not returned.
func (m *Manager) Create(ctx context.Context, name string, opts CreateOptions) (*Budget, error) {
	if name == "" {
		name = "My Budget"
	}
	id := unsafeIDChars.ReplaceAllString(name, "-") + "-" + m.suffix()
	dir := filepath.Join(m.dir, id)

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("create budget %q: %w", id, ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create budget %q: %w", id, err)
	}
	if err := writeInfo(dir, Info{ID: id, Name: name}); err != nil {
		m.discard(ctx, id)
		return nil, err
	}

	b, err := m.Load(ctx, id)
	if err != nil {
		m.discard(ctx, id)
		return nil, err
	}
	if err := seedCategories(ctx, b.DB); err != nil {
		m.discard(ctx, id)
		return nil, fmt.Errorf("seed budget %q: %w", id, err)
	}
	m.logger.Info("budget created", "id", id, "name", name)

	if !opts.AvoidUpload {
		if err := m.Upload(ctx); err != nil {
			m.logger.Warn("initial upload failed", "id", id, "error", err)
		}
	}
	return b, nil
}

// Load opens a budget and makes it current, closing the previous one. The
// budget starts in ModeEnabled with its clock resuming after the newest
// logged change.
func (m *Manager) Load(ctx context.Context, id string) (*Budget, error) {
	if err := m.Close(ctx); err != nil {
		return nil, err
	}

	dir := filepath.Join(m.dir, id)
	info, err := readInfo(dir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("load budget %q: %w", id, err)
	}
	clk, err := m.resumeClock(ctx, st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load budget %q: %w", id, err)
	}

	sender := messages.NewSender(st, clk)
	sender.SetMode(messages.ModeEnabled)
	sh := sheet.New(st, m.sheetOpts...)
	sender.Observe(func(context.Context, []store.Message) { sh.MarkCacheDirty() })

	b := &Budget{
		Info:   info,
		Dir:    dir,
		Store:  st,
		Clock:  clk,
		Sender: sender,
		DB:     data.New(st, sender, m.dataOpts...),
		Sheet:  sh,
	}
	if _, err := sh.RecomputeBounds(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("load budget %q: %w", id, err)
	}

	m.mu.Lock()
	m.current = b
	m.mu.Unlock()
	m.logger.Debug("budget loaded", "id", id)
	return b, nil
}

// resumeClock builds the budget's clock, keeping its node id across loads
// and starting after the newest logged timestamp.
func (m *Manager) resumeClock(ctx context.Context, st *store.Store) (*clock.Clock, error) {
	node, err := st.GetMeta(ctx, metaClockNode)
	if err != nil {
		return nil, err
	}
	opts := append([]clock.Option(nil), m.clockOpts...)
	if node != "" {
		opts = append(opts, clock.WithNode(node))
	}

	last, err := st.LastTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	var clk *clock.Clock
	if last == "" {
		clk = clock.New(opts...)
	} else {
		ts, err := clock.ParseTimestamp(last)
		if err != nil {
			return nil, err
		}
		clk = clock.NewAt(ts, opts...)
	}

	if node == "" {
		if err := st.SetMeta(ctx, metaClockNode, clk.Node()); err != nil {
			return nil, err
		}
	}
	return clk, nil
}

// Close closes the current budget, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	b := m.current
	m.current = nil
	m.mu.Unlock()
	if b == nil {
		return nil
	}

	if err := b.Sheet.WaitOnSpreadsheet(ctx); err != nil {
		m.logger.Warn("closing with computation pending", "id", b.ID, "error", err)
	}
	if err := b.Store.Close(); err != nil {
		return fmt.Errorf("close budget %q: %w", b.ID, err)
	}
	m.logger.Debug("budget closed", "id", b.ID)
	return nil
}

// Delete removes a budget from disk, closing it first if it is current.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if cur := m.Current(); cur != nil && cur.ID == id {
		if err := m.Close(ctx); err != nil {
			return err
		}
	}
	dir := filepath.Join(m.dir, id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("delete budget %q: %w", id, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete budget %q: %w", id, err)
	}
	m.logger.Info("budget deleted", "id", id)
	return nil
}

// discard removes a budget whose creation failed part way, closing it
// first if it became current.
func (m *Manager) discard(ctx context.Context, id string) {
	if cur := m.Current(); cur != nil && cur.ID == id {
		if err := m.Close(ctx); err != nil {
			m.logger.Warn("closing discarded budget", "id", id, "error", err)
		}
	}
	if err := os.RemoveAll(filepath.Join(m.dir, id)); err != nil {
		m.logger.Warn("removing discarded budget", "id", id, "error", err)
	}
}

// List returns every budget in the data directory, sorted by name.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := readInfo(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Debug("skipping directory", "dir", e.Name(), "error", err)
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Upload copies the current budget file to remote storage.
func (m *Manager) Upload(ctx context.Context) error {
	b := m.Current()
	if b == nil {
		return ErrNoBudget
	}
	if err := b.Store.Checkpoint(ctx); err != nil {
		return err
	}
	return m.uploader.Upload(ctx, b.ID, b.Path())
}

func readInfo(dir string) (Info, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return Info{}, fmt.Errorf("budget %q: %w", filepath.Base(dir), ErrNotFound)
	}
	if err != nil {
		return Info{}, fmt.Errorf("read budget metadata: %w", err)
	}
	var info Info
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return Info{}, fmt.Errorf("parse budget metadata: %w", err)
	}
	return info, nil
}

func writeInfo(dir string, info Info) error {
	raw, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode budget metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), raw, 0o644); err != nil {
		return fmt.Errorf("write budget metadata: %w", err)
	}
	return nil
}
