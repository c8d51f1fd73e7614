package framed

import (
	"bytes"
	"encoding/gob"

	"github.com/hashicorp/go-msgpack/codec"
)

// Serializer converts message values to and from the payload bytes of a frame.
// Both peers must use the same Serializer.
//
// Marshal is always called with a pointer to the message and Unmarshal with a
// pointer to a zero message, so interface-typed messages keep their dynamic
// type when the serializer supports it.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// GobSerializer encodes payloads with encoding/gob. Every frame carries its own
// type description, so frames can be decoded independently. Interface-typed
// messages must have their concrete types registered with gob.Register.
type GobSerializer struct{}

func (GobSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// MsgpackSerializer encodes payloads with MessagePack. Messages should be
// concrete types; an interface-typed message decodes into generic maps.
type MsgpackSerializer struct {
	handle codec.MsgpackHandle
}

// NewMsgpackSerializer returns a MessagePack serializer.
func NewMsgpackSerializer() *MsgpackSerializer {
	return &MsgpackSerializer{}
}

func (s *MsgpackSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, &s.handle).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *MsgpackSerializer) Unmarshal(data []byte, v any) error {
	return codec.NewDecoder(bytes.NewReader(data), &s.handle).Decode(v)
}

func defaultSerializer() Serializer {
	return GobSerializer{}
}
