package api

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/clock"
	"github.com/roach88/budgetsync/internal/cloud"
	"github.com/roach88/budgetsync/internal/connection"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/sheet"
	"github.com/roach88/budgetsync/internal/testutil"
)

type fixture struct {
	srv     *Server
	budgets *budget.Manager
	hub     *connection.Hub
	conns   []*connection.ChannelConn

	mu      sync.Mutex
	uploads []string
	failUp  error
}

// createTestServer builds a server over a fresh data directory with a
// deterministic clock frozen at testutil.Epoch and clients connected
// in-process. No budget is open.
func createTestServer(t *testing.T, clients int, opts ...Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wall := testutil.NewFrozenWall(testutil.Epoch)

	f := &fixture{}
	uploader := cloud.UploaderFunc(func(_ context.Context, id, _ string) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUp != nil {
			return f.failUp
		}
		f.uploads = append(f.uploads, id)
		return nil
	})

	f.budgets = budget.NewManager(t.TempDir(),
		budget.WithLogger(logger),
		budget.WithUploader(uploader),
		budget.WithIDSuffix(testutil.NewSequentialIDs("b").NewID),
		budget.WithClockOptions(clock.WithNode(testutil.Node), clock.WithWallClock(wall.Now)),
		budget.WithDataOptions(data.WithIDGenerator(testutil.NewSequentialIDs("id")), data.WithNow(wall.Now)),
		budget.WithSheetOptions(sheet.WithNow(wall.Now)),
	)
	f.hub = connection.NewHub(connection.WithLogger(logger))
	for i := 0; i < clients; i++ {
		c := connection.NewChannelConn(string(rune('a'+i)), 64)
		f.hub.Connect(c)
		f.conns = append(f.conns, c)
	}

	f.srv = NewServer(f.budgets, f.hub, append([]Option{WithLogger(logger)}, opts...)...)
	t.Cleanup(func() { f.srv.Shutdown(context.Background()) })
	return f
}

// createTestBudget opens a seeded budget and discards the events that
// produced.
func (f *fixture) createTestBudget(t *testing.T) budget.Info {
	t.Helper()
	info, err := f.srv.CreateBudget(context.Background(), "Test", true)
	require.NoError(t, err)
	f.drain()
	return info
}

func (f *fixture) drain() {
	for _, c := range f.conns {
		c.Drain()
	}
}

func syncTables(t *testing.T, evs []connection.Event) [][]string {
	t.Helper()
	var out [][]string
	for _, ev := range evs {
		if ev.Name != EventSync {
			continue
		}
		payload, ok := ev.Payload.(SyncEvent)
		require.True(t, ok, "sync-event payload is %T", ev.Payload)
		require.Equal(t, "success", payload.Type)
		out = append(out, payload.Tables)
	}
	return out
}

func eventNames(evs []connection.Event) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

func (f *fixture) categoryID(t *testing.T, name string) string {
	t.Helper()
	id, err := f.srv.IDByName(context.Background(), "categories", name)
	require.NoError(t, err)
	return id
}

func (f *fixture) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func (f *fixture) failUploads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUp = err
}
