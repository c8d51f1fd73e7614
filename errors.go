package framed

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind int

const (
	// KindConnect means the remote address was unreachable or refused the connection.
	KindConnect Kind = iota + 1
	// KindBind means the listening address could not be bound.
	KindBind
	// KindIO means a transport read or write failed.
	KindIO
	// KindCodec means a payload could not be serialized or deserialized.
	KindCodec
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindBind:
		return "bind"
	case KindIO:
		return "io"
	case KindCodec:
		return "codec"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error type returned by codec, client and server operations.
// Use errors.Is with ErrConnect, ErrBind, ErrIO or ErrCodec to test its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	if e.Op == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels.
var (
	ErrConnect = &Error{Kind: KindConnect}
	ErrBind    = &Error{Kind: KindBind}
	ErrIO      = &Error{Kind: KindIO}
	ErrCodec   = &Error{Kind: KindCodec}
)

// Protocol terminations reported by Conn and Client.
var (
	// ErrCleanClose means the peer shut down before sending any byte of a new frame.
	ErrCleanClose = errors.New("connection closed by peer")
	// ErrAbruptClose means the peer shut down in the middle of a frame.
	ErrAbruptClose = errors.New("connection closed mid-frame")
)

var (
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrInvalidOnMessage is returned by Bind when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
	// ErrServerRunning is returned when Run is called more than once.
	ErrServerRunning = errors.New("server already running")
	// ErrServerClosed is returned by Run after Close.
	ErrServerClosed = errors.New("server closed")
	// ErrIdleTimeout is passed to the error handler when a connection is evicted for inactivity.
	ErrIdleTimeout = errors.New("connection idle timeout")
	// ErrFrameTooLarge is returned when a frame length exceeds the configured maximum.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrUnsupportedPlatform is returned on systems without unix sockets.
	ErrUnsupportedPlatform = errors.New("unsupported platform: unix sockets required")

	errWouldBlock = errors.New("no data pending")
)

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func ioError(op string, err error) error {
	return newError(KindIO, op, err)
}

func codecError(op string, err error) error {
	return newError(KindCodec, op, err)
}

// termination tags an end of stream met while reading a frame with the
// protocol termination it implies, keeping the io error matchable.
func termination(err error, midFrame bool) error {
	switch {
	case err == io.EOF && !midFrame:
		return fmt.Errorf("%w: %w", ErrCleanClose, io.EOF)
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: %w", ErrAbruptClose, io.ErrUnexpectedEOF)
	default:
		return err
	}
}
