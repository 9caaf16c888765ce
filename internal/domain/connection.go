package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionID identifies one live transport connection.
type ConnectionID = uuid.UUID

// Connection is the hub-side handle of a client transport. The hub only
// enqueues events; a transport goroutine drains Events and watches Done.
type Connection struct {
	ID          ConnectionID
	ConnectedAt time.Time

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewConnection(buffer int) *Connection {
	if buffer <= 0 {
		buffer = 16
	}
	return &Connection{
		ID:          uuid.New(),
		ConnectedAt: time.Now().UTC(),
		events:      make(chan Event, buffer),
		done:        make(chan struct{}),
	}
}

// EnqueueEvent reports false when the connection is closed or its buffer is full.
func (c *Connection) EnqueueEvent(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

func (c *Connection) Events() <-chan Event {
	return c.events
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection for shutdown. Events already queued stay
// readable so the transport can flush them before closing the socket.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
