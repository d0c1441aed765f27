package mutator

import (
	"context"
	"sync"

	"github.com/roach88/budgetsync/internal/store"
)

// UndoGroup is the set of messages sent by one undoable mutation.
type UndoGroup struct {
	mu       sync.Mutex
	messages []store.Message
}

// Messages returns a copy of the recorded messages in send order.
func (g *UndoGroup) Messages() []store.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]store.Message(nil), g.messages...)
}

func (g *UndoGroup) empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages) == 0
}

// Record adds messages to the undo group of the mutation running in ctx.
// It does nothing when undo is disabled or ctx is not inside a mutation.
func Record(ctx context.Context, msgs ...store.Message) {
	m, ok := ctx.Value(activeKey{}).(*mutation)
	if !ok || !m.undo {
		return
	}
	m.group.mu.Lock()
	m.group.messages = append(m.group.messages, msgs...)
	m.group.mu.Unlock()
}

// UndoLog is the history of undoable mutations, oldest first.
type UndoLog struct {
	mu     sync.Mutex
	groups []*UndoGroup
}

func (l *UndoLog) push(g *UndoGroup) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.groups = append(l.groups, g)
}

// Len returns the number of recorded groups.
func (l *UndoLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.groups)
}

// Last returns the most recent group, or nil when the log is empty.
func (l *UndoLog) Last() *UndoGroup {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.groups) == 0 {
		return nil
	}
	return l.groups[len(l.groups)-1]
}

// Clear drops the recorded history. Loading or closing a budget clears it.
func (l *UndoLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.groups = nil
}
