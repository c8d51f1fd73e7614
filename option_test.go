package framed

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerLoggerOption(t *testing.T) {
	logger := &mockLogger{}

	var opts serverOptions
	ServerLoggerOption(logger)(&opts)
	require.Same(t, logger, opts.logger)
}

func TestServerSerializerOption(t *testing.T) {
	s := NewMsgpackSerializer()

	var opts serverOptions
	ServerSerializerOption(s)(&opts)
	require.Same(t, s, opts.serializer)
}

func TestServerMaxFrameSizeOption(t *testing.T) {
	var opts serverOptions
	ServerMaxFrameSizeOption(1024)(&opts)
	require.Equal(t, uint64(1024), opts.maxFrameSize)
}

func TestServerMaxConnsOption(t *testing.T) {
	var opts serverOptions
	ServerMaxConnsOption(10)(&opts)
	require.Equal(t, 10, opts.maxConns)
}

func TestServerIdleTimeoutOption(t *testing.T) {
	var opts serverOptions
	ServerIdleTimeoutOption(30 * time.Second)(&opts)
	require.Equal(t, 30*time.Second, opts.idleTimeout)
}

func TestCheckServerOptions_Defaults(t *testing.T) {
	var opts serverOptions
	checkServerOptions(&opts)

	require.Equal(t, slog.Default(), opts.logger)
	require.Equal(t, GobSerializer{}, opts.serializer)
	require.Zero(t, opts.maxFrameSize)
	require.Zero(t, opts.maxConns)
	require.Zero(t, opts.idleTimeout)
}

func TestCheckServerOptions_Negative(t *testing.T) {
	opts := serverOptions{maxConns: -1, idleTimeout: -time.Second}
	checkServerOptions(&opts)

	require.Zero(t, opts.maxConns)
	require.Zero(t, opts.idleTimeout)
}

func TestCheckServerOptions_PreservesCustom(t *testing.T) {
	logger := &mockLogger{}
	s := NewMsgpackSerializer()

	opts := serverOptions{logger: logger, serializer: s, maxConns: 3}
	checkServerOptions(&opts)

	require.Same(t, logger, opts.logger)
	require.Same(t, s, opts.serializer)
	require.Equal(t, 3, opts.maxConns)
}

func TestClientOptions(t *testing.T) {
	logger := &mockLogger{}
	s := NewMsgpackSerializer()

	var opts clientOptions
	for _, o := range []ClientOption{
		ClientLoggerOption(logger),
		ClientSerializerOption(s),
		ClientMaxFrameSizeOption(64),
	} {
		o(&opts)
	}
	checkClientOptions(&opts)

	require.Same(t, logger, opts.logger)
	require.Same(t, s, opts.serializer)
	require.Equal(t, uint64(64), opts.maxFrameSize)
}

func TestCheckClientOptions_Defaults(t *testing.T) {
	var opts clientOptions
	checkClientOptions(&opts)

	require.Equal(t, slog.Default(), opts.logger)
	require.Equal(t, GobSerializer{}, opts.serializer)
	require.Zero(t, opts.maxFrameSize)
}

func TestBind_OptionsApplied(t *testing.T) {
	logger := &mockLogger{}
	s, err := Bind("127.0.0.1:0", counterHandlers(),
		ServerLoggerOption(logger),
		ServerMaxFrameSizeOption(512),
		ServerIdleTimeoutOption(time.Second),
	)
	require.NoError(t, err)
	defer s.Close()

	require.Same(t, logger, s.logger)
	require.Equal(t, uint64(512), s.codec.MaxFrameSize)
	require.Equal(t, 500*time.Millisecond, s.waitTimeout())
}
