package connection

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when sending to a closed ChannelConn.
var ErrClosed = errors.New("connection closed")

// ChannelConn is an in-process connection that queues events on a
// buffered channel.
type ChannelConn struct {
	id string
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// NewChannelConn creates a connection with room for buffer undelivered
// events.
func NewChannelConn(id string, buffer int) *ChannelConn {
	return &ChannelConn{id: id, ch: make(chan Event, buffer)}
}

// ID returns the connection id.
func (c *ChannelConn) ID() string { return c.id }

// Send queues an event, blocking while the buffer is full.
func (c *ChannelConn) Send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the channel events are delivered on.
func (c *ChannelConn) Events() <-chan Event { return c.ch }

// Drain returns every queued event without blocking.
func (c *ChannelConn) Drain() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-c.ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Close stops the connection accepting events.
func (c *ChannelConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
