package framed

import (
	"context"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/framed/internal/poller"
)

// Server accepts TCP connections and dispatches their frames to Handlers.
//
// A listener goroutine accepts sockets and queues them; a single engine
// goroutine owns every connection, waits for readable sockets, decodes one
// frame per readable connection per iteration and runs the handlers.
type Server[S any, M any] struct {
	listener *net.TCPListener
	handlers Handlers[S, M]
	opts     serverOptions
	logger   Logger
	codec    *Codec[M]

	poller  *poller.Poller
	inbound *inboundQueue

	// owned by the engine goroutine
	conns []*Conn[S, M]
	byFD  map[int]*Conn[S, M]
	ready []int

	// live plus queued connections, read by the listener for the connection limit
	count atomic.Int32

	// the socket the engine is reading a frame from, and whether Run is
	// stopping; together they let shutdown cut a blocked frame read short
	reading  atomic.Pointer[net.TCPConn]
	stopping atomic.Bool

	running atomic.Bool
	mu      sync.Mutex
	closed  bool
	cancel  context.CancelFunc
}

// Bind validates handlers and binds the listening address.
// The handlers and options cannot be changed afterwards.
// Returns ErrInvalidOnMessage without OnMessage, or an ErrBind error if the
// address cannot be bound.
func Bind[S any, M any](addr string, handlers Handlers[S, M], opts ...ServerOption) (*Server[S, M], error) {
	if err := handlers.validate(); err != nil {
		return nil, err
	}

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	checkServerOptions(&o)

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, newError(KindBind, "resolve "+addr, err)
	}

	listener, err := net.ListenTCP(tcpAddr.Network(), tcpAddr)
	if err != nil {
		return nil, newError(KindBind, "listen "+addr, err)
	}

	p, err := poller.New()
	if err != nil {
		_ = listener.Close()
		if errors.Is(err, poller.ErrUnsupported) {
			return nil, ErrUnsupportedPlatform
		}
		return nil, errors.Wrap(err, "create poller")
	}

	s := &Server[S, M]{
		listener: listener,
		handlers: handlers,
		opts:     o,
		logger:   o.logger,
		codec:    &Codec[M]{Serializer: o.serializer, MaxFrameSize: o.maxFrameSize},
		poller:   p,
		byFD:     make(map[int]*Conn[S, M]),
	}
	s.inbound = newInboundQueue(s.wake)

	return s, nil
}

// Addr returns the listener's network address.
func (s *Server[S, M]) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts and serves connections until ctx is canceled, Close is called
// or accepting fails. It returns the context error on cancellation and the
// accept error on listener failure. All connections are closed, without
// calling handlers, before Run returns. Run may only be called once.
func (s *Server[S, M]) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("server started", "addr", s.Addr())

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.acceptLoop(child)
	})

	group.Go(func() error {
		return s.loop(child)
	})

	group.Go(func() error {
		<-child.Done()
		// unblock Accept, Wait and a frame read in progress
		_ = s.listener.Close()
		s.interrupt()
		s.wake()
		return nil
	})

	err := group.Wait()
	s.release()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("server stopped with error", "addr", s.Addr(), "error", err)
	} else {
		s.logger.Info("server stopped", "addr", s.Addr())
	}

	return err
}

// Close stops the server. A running Run returns context.Canceled; a server
// that never ran releases its listener. Safe to call multiple times.
func (s *Server[S, M]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
		return nil
	}

	perr := s.poller.Close()
	if err := s.listener.Close(); err != nil {
		return err
	}
	return perr
}

// acceptLoop hands every accepted socket to the engine through the inbound queue.
func (s *Server[S, M]) acceptLoop(ctx context.Context) error {
	for {
		raw, err := s.listener.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return ioError("accept", err)
		}

		if limit := s.opts.maxConns; limit > 0 && int(s.count.Load()) >= limit {
			s.logger.Warn("connection limit reached", "remote_addr", raw.RemoteAddr(), "max_conns", limit)
			_ = raw.Close()
			continue
		}

		s.logger.Debug("accepted connection", "remote_addr", raw.RemoteAddr())
		_ = raw.SetNoDelay(true)

		s.count.Add(1)
		s.inbound.push(inbound{conn: raw, addr: raw.RemoteAddr()})
	}
}

// loop is the engine goroutine.
func (s *Server[S, M]) loop(ctx context.Context) error {
	for {
		ready, err := s.poller.Wait(s.ready[:0], s.waitTimeout())
		if err != nil {
			return errors.Wrap(err, "wait for connections")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.ready = ready
		s.iterate(ready, time.Now())
	}
}

// minIdleCheck keeps tiny idle timeouts from turning the engine into a busy loop.
const minIdleCheck = 10 * time.Millisecond

// waitTimeout bounds how late an idle connection can be evicted.
func (s *Server[S, M]) waitTimeout() time.Duration {
	if s.opts.idleTimeout <= 0 {
		return -1
	}
	return max(s.opts.idleTimeout/2, minIdleCheck)
}

// interrupt makes the frame read in progress, if any, fail right away.
// Safe to call from any goroutine.
func (s *Server[S, M]) interrupt() {
	s.stopping.Store(true)
	if raw := s.reading.Load(); raw != nil {
		_ = raw.SetReadDeadline(time.Now())
	}
}

// iterate runs one engine iteration: open queued connections, receive once
// from every readable connection in arrival order, evict idle ones and drop
// the terminated ones.
func (s *Server[S, M]) iterate(ready []int, now time.Time) {
	for _, fd := range ready {
		if c, ok := s.byFD[fd]; ok {
			c.ready = true
		}
	}

	s.inbound.drain(func(in inbound) {
		s.open(in, now)
	})

	for _, c := range s.conns {
		if s.stopping.Load() {
			break
		}
		if c.closed {
			continue
		}

		if c.ready {
			c.ready = false
			s.receive(c, now)
			continue
		}

		if s.opts.idleTimeout > 0 && now.Sub(c.lastActive) >= s.opts.idleTimeout {
			s.logger.Info("evicting idle connection", "addr", c.addr, "id", c.id)
			_ = c.shutdown()
			s.handlers.failed(c, ErrIdleTimeout)
		}
	}

	s.sweep()
}

func (s *Server[S, M]) open(in inbound, now time.Time) {
	fd, err := fileDescriptor(in.conn)
	if err == nil {
		err = s.poller.Add(fd)
	}
	if err != nil {
		s.logger.Warn("failed to register connection", "addr", in.addr, "error", err)
		_ = in.conn.Close()
		s.count.Add(-1)
		return
	}

	c := newConn[S, M](in, fd, s.codec, s.logger)
	c.lastActive = now
	c.detach = s.detach
	s.byFD[fd] = c

	s.logger.Info("connection established", "addr", c.addr, "id", c.id)
	s.handlers.open(c)
	s.conns = append(s.conns, c)
}

// receive applies one receive attempt to the connection lifecycle. The socket
// is always shut down before a terminal handler runs.
func (s *Server[S, M]) receive(c *Conn[S, M], now time.Time) {
	msg, status, err := s.poll(c)
	if status == RecvError && errors.Is(err, os.ErrDeadlineExceeded) {
		if s.stopping.Load() {
			// release closes it without callbacks
			return
		}
		err = errors.Wrap(ErrIdleTimeout, "frame not completed")
	}

	switch status {
	case RecvMessage:
		c.lastActive = now
		s.handlers.OnMessage(c, msg)
	case RecvNoData:
	case RecvClosed:
		s.logger.Info("connection closed", "addr", c.addr, "id", c.id)
		_ = c.shutdown()
		s.handlers.closed(c)
	case RecvClosedAbruptly:
		s.logger.Warn("connection closed unexpectedly", "addr", c.addr, "id", c.id)
		_ = c.shutdown()
		s.handlers.closedUnexpectedly(c)
	case RecvError:
		s.logger.Warn("connection error", "addr", c.addr, "id", c.id, "error", err)
		_ = c.shutdown()
		s.handlers.failed(c, err)
	}
}

// poll receives once from c. A started frame must complete within the idle
// timeout when one is set, and shutdown interrupts the read either way.
func (s *Server[S, M]) poll(c *Conn[S, M]) (M, RecvStatus, error) {
	if s.opts.idleTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(s.opts.idleTimeout))
	}

	// publish before checking, interrupt sets the flag before looking
	s.reading.Store(c.raw)
	if s.stopping.Load() {
		_ = c.raw.SetReadDeadline(time.Now())
	}

	msg, status, err := c.poll()

	s.reading.Store(nil)
	if s.opts.idleTimeout > 0 && !s.stopping.Load() {
		_ = c.raw.SetReadDeadline(time.Time{})
	}
	return msg, status, err
}

// detach unregisters a connection from the poller before its socket closes.
func (s *Server[S, M]) detach(c *Conn[S, M]) {
	delete(s.byFD, c.fd)
	if err := s.poller.Remove(c.fd); err != nil {
		s.logger.Debug("failed to unregister connection", "addr", c.addr, "error", err)
	}
}

// sweep removes closed connections, keeping the order of the others.
func (s *Server[S, M]) sweep() {
	live := s.conns[:0]
	for _, c := range s.conns {
		if c.closed {
			s.count.Add(-1)
			continue
		}
		live = append(live, c)
	}

	for i := len(live); i < len(s.conns); i++ {
		s.conns[i] = nil
	}
	s.conns = live
}

// release closes every connection, queued socket and the poller once both
// goroutines have stopped.
func (s *Server[S, M]) release() {
	for _, c := range s.conns {
		_ = c.shutdown()
	}
	s.conns = nil

	s.inbound.drain(func(in inbound) {
		_ = in.conn.Close()
	})
	s.count.Store(0)

	if err := s.poller.Close(); err != nil {
		s.logger.Debug("failed to close poller", "error", err)
	}
}

func (s *Server[S, M]) wake() {
	if err := s.poller.Wake(); err != nil {
		s.logger.Debug("failed to wake engine", "error", err)
	}
}
