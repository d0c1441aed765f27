package testutil

import (
	"sync"
	"time"

	"github.com/roach88/budgetsync/internal/clock"
)

// Epoch is the frozen wall time used by deterministic clocks.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Node is the node id used by deterministic clocks.
const Node = "0000000000000001"

// FrozenWall is a wall clock that only moves when told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FrozenWall struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenWall creates a wall clock stopped at t.
func NewFrozenWall(t time.Time) *FrozenWall {
	return &FrozenWall{now: t}
}

// Now returns the frozen time.
func (w *FrozenWall) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// Advance moves the clock forward by d.
func (w *FrozenWall) Advance(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = w.now.Add(d)
}

// NewDeterministicClock creates an HLC clock with a fixed node id whose wall
// time is frozen at Epoch.
//
// Because the wall clock never moves, every Send() after the first
// increments the counter, so the same test produces byte-identical
// timestamps:
//
//	2024-01-01T00:00:00.000Z-0000-0000000000000001
//	2024-01-01T00:00:00.000Z-0001-0000000000000001
func NewDeterministicClock() *clock.Clock {
	wall := NewFrozenWall(Epoch)
	return clock.New(clock.WithNode(Node), clock.WithWallClock(wall.Now))
}
