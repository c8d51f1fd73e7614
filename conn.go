// Package framed provides a callback-driven TCP framework for Go.
// Messages travel as length-prefixed frames, a single engine goroutine
// dispatches them to user handlers, and each connection carries its own
// application state.
package framed

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Conn is the server side of one accepted connection.
//
// A Conn belongs to the engine goroutine: use it only from inside the
// handlers it is passed to.
type Conn[S any, M any] struct {
	// State is the application state of the connection. It starts as the
	// zero value of S.
	State S

	id     uuid.UUID
	raw    *net.TCPConn
	fd     int
	addr   net.Addr
	codec  *Codec[M]
	logger Logger

	closed     bool
	ready      bool
	lastActive time.Time

	// detach unregisters the connection from the engine before its socket closes.
	detach func(*Conn[S, M])
}

func newConn[S any, M any](in inbound, fd int, codec *Codec[M], logger Logger) *Conn[S, M] {
	return &Conn[S, M]{
		id:     uuid.New(),
		raw:    in.conn,
		fd:     fd,
		addr:   in.addr,
		codec:  codec,
		logger: logger,
	}
}

// ID returns the unique identifier assigned when the connection was accepted.
func (c *Conn[S, M]) ID() uuid.UUID {
	return c.id
}

// Addr returns the remote address of the connection.
func (c *Conn[S, M]) Addr() net.Addr {
	return c.addr
}

// Send writes msg as one frame, blocking until it is handed to the kernel.
// Returns ErrConnectionClosed once the connection is closed.
func (c *Conn[S, M]) Send(msg M) error {
	if c.closed {
		return ErrConnectionClosed
	}

	if err := c.codec.Encode(c.raw, msg); err != nil {
		c.logger.Debug("write error", "addr", c.addr, "error", err)
		return err
	}
	return nil
}

// Close shuts the connection down immediately. No handler is called for it
// afterwards and the engine drops it at the end of the current iteration.
// Safe to call multiple times.
func (c *Conn[S, M]) Close() error {
	return c.shutdown()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn[S, M]) IsClosed() bool {
	return c.closed
}

func (c *Conn[S, M]) shutdown() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.detach != nil {
		c.detach(c)
	}

	if err := c.raw.Close(); err != nil {
		c.logger.Warn("failed to shutdown connection", "addr", c.addr, "error", err)
		return ioError("close", err)
	}
	return nil
}

// poll makes one non-blocking receive attempt.
func (c *Conn[S, M]) poll() (M, RecvStatus, error) {
	return c.codec.TryDecode(c.raw)
}
