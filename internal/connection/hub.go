// Package connection tracks live client connections and pushes named
// events to all of them.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSendTimeout bounds how long one connection may take to accept an
// event before it is dropped.
const DefaultSendTimeout = 2 * time.Second

// maxParallelSends caps concurrent deliveries during one broadcast.
const maxParallelSends = 16

// Event is a named notification pushed to clients.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Conn is one live client connection.
type Conn interface {
	ID() string
	Send(ctx context.Context, ev Event) error
}

// Hub holds the set of live connections.
//
// Thread-safety: all methods are safe for concurrent use.
type Hub struct {
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	conns map[string]Conn
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendTimeout sets the per-connection delivery timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		timeout: DefaultSendTimeout,
		logger:  slog.Default(),
		conns:   make(map[string]Conn),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a connection, replacing any with the same id.
func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Disconnect removes a connection. Unknown ids are ignored.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// NumClients returns the number of live connections.
func (h *Hub) NumClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send delivers an event to every connection in parallel. Connections that
// fail or time out are dropped; their errors are joined into the result.
func (h *Hub) Send(ctx context.Context, name string, payload any) error {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })

	ev := Event{Name: name, Payload: payload}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxParallelSends)
	for _, c := range conns {
		c := c
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			if err := c.Send(sendCtx, ev); err != nil {
				h.Disconnect(c.ID())
				h.logger.Warn("dropped connection", "conn", c.ID(), "event", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("send %s to %s: %w", name, c.ID(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
