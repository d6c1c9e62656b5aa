// Package ws is the websocket transport edge: it upgrades HTTP
// requests, authenticates the bearer token, and pumps frames between
// the peer and the dispatcher.
package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a buffered outbound queue so
// game-side sends never block on a slow peer. It implements
// session.Sender.
type Conn struct {
	ws           *websocket.Conn
	outbound     chan []byte
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewConn wraps an upgraded websocket connection.
//
// Precondition: ws must be non-nil; sendBuffer must be positive.
func NewConn(ws *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		outbound:     make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// Send queues a frame for delivery. Fire and forget: a full queue or a
// closed connection returns an error without blocking.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("ws: connection closed")
	}
	select {
	case c.outbound <- data:
		return nil
	default:
		return fmt.Errorf("ws: outbound buffer full")
	}
}

// Close shuts the connection down. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	return c.ws.Close()
}

// writePump drains the outbound queue onto the wire and keeps the peer
// alive with pings. Runs until Close or a write failure.
func (c *Conn) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.outbound:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
