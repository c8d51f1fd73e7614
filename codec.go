package framed

import (
	"encoding/binary"
	"io"
	"math"
	"syscall"

	"github.com/pkg/errors"
)

// HeaderSize is the size of the length prefix of every frame.
const HeaderSize = 8

// RecvStatus is the outcome of a non-blocking receive attempt.
type RecvStatus int

const (
	// RecvMessage means a complete frame was decoded.
	RecvMessage RecvStatus = iota
	// RecvNoData means nothing was pending on the socket.
	RecvNoData
	// RecvClosed means the peer shut down before sending any byte of a new frame.
	RecvClosed
	// RecvClosedAbruptly means the peer shut down in the middle of a frame.
	RecvClosedAbruptly
	// RecvError means the frame could not be read or decoded.
	RecvError
)

// Err returns the protocol termination a status reports: ErrCleanClose for
// RecvClosed, ErrAbruptClose for RecvClosedAbruptly and nil otherwise.
func (s RecvStatus) Err() error {
	switch s {
	case RecvClosed:
		return ErrCleanClose
	case RecvClosedAbruptly:
		return ErrAbruptClose
	default:
		return nil
	}
}

func (s RecvStatus) String() string {
	switch s {
	case RecvMessage:
		return "message"
	case RecvNoData:
		return "no data"
	case RecvClosed:
		return "closed"
	case RecvClosedAbruptly:
		return "closed abruptly"
	case RecvError:
		return "error"
	default:
		return "unknown"
	}
}

// PeekConn is a stream socket whose pending bytes can be inspected without
// consuming them. *net.TCPConn and *net.UnixConn implement it.
type PeekConn interface {
	io.Reader
	syscall.Conn
}

// Codec frames messages of type M on a byte stream. Each frame is an 8-byte
// little-endian payload length followed by the serialized payload.
//
// The zero Codec uses GobSerializer and accepts frames of any length.
type Codec[M any] struct {
	// Serializer encodes payloads. Nil means GobSerializer.
	Serializer Serializer
	// MaxFrameSize bounds the payload length accepted by Decode. Zero means unlimited.
	MaxFrameSize uint64
}

// NewCodec returns a codec using the given serializer.
func NewCodec[M any](s Serializer) *Codec[M] {
	return &Codec[M]{Serializer: s}
}

func (c *Codec[M]) serializer() Serializer {
	if c.Serializer == nil {
		return defaultSerializer()
	}
	return c.Serializer
}

// Encode serializes msg and writes the length prefix and payload with a single write.
func (c *Codec[M]) Encode(w io.Writer, msg M) error {
	payload, err := c.serializer().Marshal(&msg)
	if err != nil {
		return codecError("marshal", err)
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint64(frame, uint64(len(payload)))
	copy(frame[HeaderSize:], payload)

	if _, err = w.Write(frame); err != nil {
		return ioError("write frame", err)
	}
	return nil
}

// Decode blocks until one full frame has been read from r and returns its message.
// End of stream before the first byte of a frame is an ErrIO error that also
// matches ErrCleanClose and io.EOF; inside a frame it matches ErrAbruptClose
// and io.ErrUnexpectedEOF.
func (c *Codec[M]) Decode(r io.Reader) (M, error) {
	payload, err := c.readPayload(r)
	if err != nil {
		var zero M
		return zero, err
	}
	return c.unmarshal(payload)
}

func (c *Codec[M]) unmarshal(payload []byte) (M, error) {
	var msg M
	if err := c.serializer().Unmarshal(payload, &msg); err != nil {
		return msg, codecError("unmarshal", err)
	}
	return msg, nil
}

func (c *Codec[M]) readPayload(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, ioError("read header", termination(err, false))
	}

	length := binary.LittleEndian.Uint64(header[:])
	if (c.MaxFrameSize > 0 && length > c.MaxFrameSize) || length > math.MaxInt {
		return nil, codecError("read header", errors.Wrapf(ErrFrameTooLarge, "length %d", length))
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		// the header was consumed, so any EOF here is mid-frame
		return nil, ioError("read payload", termination(err, true))
	}
	return payload, nil
}

// TryDecode returns immediately with RecvNoData when no byte is pending on conn.
// Otherwise it blocks until a whole frame has been read, so a peer that starts a
// frame is expected to finish it.
//
// The returned error is non-nil only with RecvError.
func (c *Codec[M]) TryDecode(conn PeekConn) (M, RecvStatus, error) {
	var zero M

	n, err := peek(conn)
	switch {
	case errors.Is(err, errWouldBlock):
		return zero, RecvNoData, nil
	case err != nil:
		return zero, RecvError, ioError("peek", err)
	case n == 0:
		return zero, RecvClosed, nil
	}

	payload, err := c.readPayload(conn)
	if err != nil {
		// a byte was pending, so any end of stream is mid-frame
		if errors.Is(err, ErrAbruptClose) || errors.Is(err, ErrCleanClose) {
			return zero, RecvClosedAbruptly, nil
		}
		return zero, RecvError, err
	}

	msg, err := c.unmarshal(payload)
	if err != nil {
		return zero, RecvError, err
	}
	return msg, RecvMessage, nil
}
