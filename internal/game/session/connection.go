// Package session tracks live connections and binds them to persistent
// presence records. A user has at most one active connection; presence
// records outlive connections so game state survives a disconnect.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Sender delivers an encoded frame to the remote peer. Implemented by
// the websocket transport; tests substitute an in-memory recorder.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Connection is one live link to a user. All methods are safe for
// concurrent use.
type Connection struct {
	id     string
	userID int64
	sender Sender

	mu     sync.Mutex
	closed bool

	sent     atomic.Int64
	received atomic.Int64
}

// NewConnection wraps a Sender as a tracked connection.
//
// Precondition: userID must be positive; sender must be non-nil.
// Postcondition: Returns an open connection with a fresh UUID.
func NewConnection(userID int64, sender Sender) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		sender: sender,
	}
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated user behind the connection.
func (c *Connection) UserID() int64 { return c.userID }

// Send delivers a frame to the peer.
//
// Postcondition: The frame is handed to the transport, or an error if
// the connection is closed or the transport rejects it.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	if err := c.sender.Send(data); err != nil {
		return fmt.Errorf("send to %s: %w", c.id, err)
	}
	c.sent.Add(1)
	return nil
}

// CountReceived records one inbound frame.
func (c *Connection) CountReceived() {
	c.received.Add(1)
}

// SentCount returns the number of frames delivered.
func (c *Connection) SentCount() int64 { return c.sent.Load() }

// ReceivedCount returns the number of inbound frames recorded.
func (c *Connection) ReceivedCount() int64 { return c.received.Load() }

// Close shuts the transport. Idempotent.
//
// Postcondition: Further Send calls return an error.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sender.Close()
}

// IsClosed reports whether the connection has been closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
