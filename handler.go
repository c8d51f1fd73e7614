package framed

// Handlers is the set of callbacks a Server dispatches to. It is copied by
// Bind and cannot change afterwards.
//
// Every callback runs on the engine goroutine, one connection at a time, and
// the engine does not poll any other connection until it returns.
type Handlers[S any, M any] struct {
	// OnOpen is called once for each accepted connection, before any of its
	// messages are delivered.
	OnOpen func(c *Conn[S, M])

	// OnMessage is called for every decoded frame. It is required.
	OnMessage func(c *Conn[S, M], msg M)

	// OnClosed is called when the peer shut down between frames.
	OnClosed func(c *Conn[S, M])

	// OnClosedUnexpectedly is called when the peer shut down in the middle of a frame.
	OnClosedUnexpectedly func(c *Conn[S, M])

	// OnError is called when a frame cannot be read or decoded, or when the
	// connection is evicted for inactivity.
	OnError func(c *Conn[S, M], err error)
}

func (h *Handlers[S, M]) validate() error {
	if h.OnMessage == nil {
		return ErrInvalidOnMessage
	}
	return nil
}

func (h *Handlers[S, M]) open(c *Conn[S, M]) {
	if h.OnOpen != nil {
		h.OnOpen(c)
	}
}

func (h *Handlers[S, M]) closed(c *Conn[S, M]) {
	if h.OnClosed != nil {
		h.OnClosed(c)
	}
}

func (h *Handlers[S, M]) closedUnexpectedly(c *Conn[S, M]) {
	if h.OnClosedUnexpectedly != nil {
		h.OnClosedUnexpectedly(c)
	}
}

func (h *Handlers[S, M]) failed(c *Conn[S, M], err error) {
	if h.OnError != nil {
		h.OnError(c, err)
	}
}
