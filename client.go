package framed

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Client is a synchronous connection to a Server. Every operation blocks until
// it completes or fails; there are no retries and no timeouts.
// A Client is not safe for concurrent use.
type Client[M any] struct {
	rawConn *net.TCPConn
	codec   *Codec[M]
	logger  Logger
	closed  atomic.Bool
}

// Dial connects to a server. ctx only bounds the connection attempt.
// Returns an ErrConnect error when the address is unreachable or refuses.
func Dial[M any](ctx context.Context, addr string, opt ...ClientOption) (*Client[M], error) {
	var opts clientOptions
	for _, o := range opt {
		o(&opts)
	}
	checkClientOptions(&opts)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newError(KindConnect, "dial "+addr, err)
	}

	c := &Client[M]{
		rawConn: conn.(*net.TCPConn),
		codec:   &Codec[M]{Serializer: opts.serializer, MaxFrameSize: opts.maxFrameSize},
		logger:  opts.logger,
	}
	c.logger.Debug("connected", "addr", c.RemoteAddr())

	return c, nil
}

// Send writes msg as one frame.
func (c *Client[M]) Send(msg M) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.codec.Encode(c.rawConn, msg)
}

// Recv blocks until a whole frame has arrived and returns its message.
// A server that closed between frames yields an ErrIO error matching
// ErrCleanClose; one that closed mid-frame matches ErrAbruptClose.
//
// A frame above the configured maximum leaves its payload unread, so the
// client closes itself and later calls return ErrConnectionClosed.
func (c *Client[M]) Recv() (M, error) {
	if c.closed.Load() {
		var zero M
		return zero, ErrConnectionClosed
	}

	msg, err := c.codec.Decode(c.rawConn)
	if errors.Is(err, ErrFrameTooLarge) {
		c.logger.Warn("closing desynchronized connection", "addr", c.RemoteAddr(), "error", err)
		_ = c.Close()
	}
	return msg, err
}

// Close shuts the connection down. Later Send and Recv calls return
// ErrConnectionClosed. Safe to call multiple times.
func (c *Client[M]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.logger.Debug("closing connection", "addr", c.RemoteAddr())
	if err := c.rawConn.Close(); err != nil {
		return ioError("close", err)
	}
	return nil
}

// RemoteAddr returns the server address.
func (c *Client[M]) RemoteAddr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// LocalAddr returns the local address of the connection.
func (c *Client[M]) LocalAddr() net.Addr {
	return c.rawConn.LocalAddr()
}
