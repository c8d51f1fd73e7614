package framed

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

// shape is an interface-typed message whose variants travel as gob interface values.
type shape interface {
	area() float64
}

type rect struct{ W, H float64 }

type square struct{ Side float64 }

func (r rect) area() float64   { return r.W * r.H }
func (s square) area() float64 { return s.Side * s.Side }

func init() {
	gob.Register(rect{})
	gob.Register(square{})
}

func TestGobSerializer_InterfaceMessages(t *testing.T) {
	codec := NewCodec[shape](GobSerializer{})

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, rect{W: 2, H: 3}))
	require.NoError(t, codec.Encode(&buf, square{Side: 4}))

	got, err := codec.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, rect{W: 2, H: 3}, got)
	require.Equal(t, 6.0, got.area())

	got, err = codec.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, square{Side: 4}, got)
}

func TestGobSerializer_FramesIndependent(t *testing.T) {
	var s GobSerializer

	first, err := s.Marshal(&testMsg{Op: opAdd, Arg: 1})
	require.NoError(t, err)
	second, err := s.Marshal(&testMsg{Op: opAdd, Arg: 1})
	require.NoError(t, err)

	// every payload carries its own type description
	require.Equal(t, first, second)

	var msg testMsg
	require.NoError(t, s.Unmarshal(second, &msg))
	require.Equal(t, add(1), msg)
}

func TestMsgpackSerializer(t *testing.T) {
	s := NewMsgpackSerializer()

	data, err := s.Marshal(&testMsg{Op: opSub, Arg: -7})
	require.NoError(t, err)

	var msg testMsg
	require.NoError(t, s.Unmarshal(data, &msg))
	require.Equal(t, testMsg{Op: opSub, Arg: -7}, msg)
}

func TestMsgpackSerializer_Malformed(t *testing.T) {
	s := NewMsgpackSerializer()

	data, err := s.Marshal(&testMsg{Op: opSub, Arg: -7})
	require.NoError(t, err)

	var msg testMsg
	require.Error(t, s.Unmarshal(data[:len(data)-1], &msg))
}

func TestDefaultSerializer(t *testing.T) {
	require.Equal(t, GobSerializer{}, defaultSerializer())
}
