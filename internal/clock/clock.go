// Package clock provides the causal clock used to stamp every change-log entry.
//
// Timestamps come from a hybrid logical clock: wall-clock milliseconds, a
// counter that breaks ties inside one millisecond, and the node id of the
// process that issued them. The string form sorts lexically in causal order,
// which lets the change log compare timestamps with plain SQL.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	timeLayout = "2006-01-02T15:04:05.000Z"
	maxCounter = 0xFFFF
	nodeLen    = 16

	// MaxDrift bounds how far ahead of local wall time a received timestamp may be.
	MaxDrift = 5 * time.Minute
)

var (
	ErrClockDrift      = errors.New("clock: remote timestamp drifted too far ahead")
	ErrCounterOverflow = errors.New("clock: counter overflow")
	ErrDuplicateNode   = errors.New("clock: remote timestamp carries local node id")
)

// Timestamp is an opaque, totally ordered causal marker.
type Timestamp struct {
	Millis  int64
	Counter uint16
	Node    string
}

// String renders the timestamp so that lexical order equals causal order.
func (t Timestamp) String() string {
	return fmt.Sprintf("%s-%04X-%s",
		time.UnixMilli(t.Millis).UTC().Format(timeLayout),
		t.Counter,
		padNode(t.Node),
	)
}

// IsZero reports whether no timestamp has been issued yet.
func (t Timestamp) IsZero() bool {
	return t.Millis == 0 && t.Counter == 0 && t.Node == ""
}

// Compare returns -1, 0 or +1 ordering t against o.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Millis != o.Millis:
		if t.Millis < o.Millis {
			return -1
		}
		return 1
	case t.Counter != o.Counter:
		if t.Counter < o.Counter {
			return -1
		}
		return 1
	default:
		return strings.Compare(padNode(t.Node), padNode(o.Node))
	}
}

// After reports whether t is strictly greater than o.
func (t Timestamp) After(o Timestamp) bool {
	return t.Compare(o) > 0
}

// ParseTimestamp parses the String form back into a Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if len(s) != len(timeLayout)+1+4+1+nodeLen {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: unexpected length", s)
	}
	wall, err := time.Parse(timeLayout, s[:len(timeLayout)])
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	rest := s[len(timeLayout):]
	if rest[0] != '-' || rest[5] != '-' {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: malformed separators", s)
	}
	counter, err := strconv.ParseUint(rest[1:5], 16, 16)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: counter: %w", s, err)
	}
	return Timestamp{
		Millis:  wall.UnixMilli(),
		Counter: uint16(counter),
		Node:    rest[6:],
	}, nil
}

func padNode(node string) string {
	if len(node) >= nodeLen {
		return node[:nodeLen]
	}
	return strings.Repeat("0", nodeLen-len(node)) + node
}

// Clock issues monotonically increasing timestamps.
//
// Safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	last Timestamp
	node string
	wall func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithNode fixes the node id instead of generating a random one.
func WithNode(node string) Option {
	return func(c *Clock) {
		c.node = padNode(node)
	}
}

// WithWallClock replaces the physical time source.
func WithWallClock(fn func() time.Time) Option {
	return func(c *Clock) {
		c.wall = fn
	}
}

// New creates a clock that has not issued any timestamp yet.
func New(opts ...Option) *Clock {
	c := &Clock{
		node: randomNode(),
		wall: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAt creates a clock resuming after a previously issued timestamp.
func NewAt(last Timestamp, opts ...Option) *Clock {
	c := New(opts...)
	c.last = last
	return c
}

func randomNode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:nodeLen]
}

// Node returns the node id stamped into every timestamp this clock issues.
func (c *Clock) Node() string {
	return c.node
}

// Now returns the last issued timestamp without advancing the clock.
// Every timestamp issued afterwards compares greater than it.
func (c *Clock) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Send advances the clock and returns a timestamp for a local event.
// Counter exhaustion within one millisecond carries into the next millisecond.
func (c *Clock) Send() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := c.wall().UnixMilli()
	switch {
	case phys > c.last.Millis:
		c.last = Timestamp{Millis: phys, Node: c.node}
	case c.last.Counter == maxCounter:
		c.last = Timestamp{Millis: c.last.Millis + 1, Node: c.node}
	default:
		c.last = Timestamp{Millis: c.last.Millis, Counter: c.last.Counter + 1, Node: c.node}
	}
	return c.last
}

// Recv merges a timestamp received from another node.
func (c *Clock) Recv(remote Timestamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := c.wall().UnixMilli()
	if remote.Millis-phys > MaxDrift.Milliseconds() {
		return ErrClockDrift
	}
	if padNode(remote.Node) == c.node {
		return ErrDuplicateNode
	}

	millis := max(c.last.Millis, phys, remote.Millis)
	var counter int
	switch {
	case millis == c.last.Millis && millis == remote.Millis:
		counter = max(int(c.last.Counter), int(remote.Counter)) + 1
	case millis == c.last.Millis:
		counter = int(c.last.Counter) + 1
	case millis == remote.Millis:
		counter = int(remote.Counter) + 1
	}
	if counter > maxCounter {
		return ErrCounterOverflow
	}

	c.last = Timestamp{Millis: millis, Counter: uint16(counter), Node: c.node}
	return nil
}
