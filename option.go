package framed

import (
	"time"
)

// serverOptions holds the configuration for a server.
type serverOptions struct {
	logger     Logger
	serializer Serializer

	maxFrameSize uint64        // maximum payload length of an inbound frame
	maxConns     int           // maximum number of live connections, 0 means unlimited
	idleTimeout  time.Duration // evict connections silent for this long, 0 disables
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

// checkServerOptions sets default values for server options.
func checkServerOptions(opts *serverOptions) {
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.serializer == nil {
		opts.serializer = defaultSerializer()
	}

	if opts.maxConns < 0 {
		opts.maxConns = 0
	}

	if opts.idleTimeout < 0 {
		opts.idleTimeout = 0
	}
}

// ServerLoggerOption sets the logger for the server.
// If not set, the default slog logger will be used.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// ServerSerializerOption sets the payload serializer. Clients must use the same one.
// The default is GobSerializer.
func ServerSerializerOption(s Serializer) ServerOption {
	return func(o *serverOptions) {
		o.serializer = s
	}
}

// ServerMaxFrameSizeOption bounds the payload length the server accepts.
// A connection sending a larger frame is terminated through the error handler.
// Zero, the default, accepts any length.
func ServerMaxFrameSizeOption(size uint64) ServerOption {
	return func(o *serverOptions) {
		o.maxFrameSize = size
	}
}

// ServerMaxConnsOption limits the number of live connections. Sockets accepted
// beyond the limit are closed immediately, before any handler sees them.
// Zero, the default, means no limit.
func ServerMaxConnsOption(n int) ServerOption {
	return func(o *serverOptions) {
		o.maxConns = n
	}
}

// ServerIdleTimeoutOption evicts connections that have not delivered a frame
// for the given duration, and those that start a frame without completing it
// within the same duration. Evicted connections are shut down and reported to
// the error handler with ErrIdleTimeout.
// Zero, the default, keeps idle connections forever.
func ServerIdleTimeoutOption(timeout time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.idleTimeout = timeout
	}
}

// clientOptions holds the configuration for a client.
type clientOptions struct {
	logger       Logger
	serializer   Serializer
	maxFrameSize uint64
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

func checkClientOptions(opts *clientOptions) {
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.serializer == nil {
		opts.serializer = defaultSerializer()
	}
}

// ClientLoggerOption sets the logger for the client.
func ClientLoggerOption(logger Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// ClientSerializerOption sets the payload serializer. The server must use the same one.
func ClientSerializerOption(s Serializer) ClientOption {
	return func(o *clientOptions) {
		o.serializer = s
	}
}

// ClientMaxFrameSizeOption bounds the payload length Recv accepts.
func ClientMaxFrameSizeOption(size uint64) ClientOption {
	return func(o *clientOptions) {
		o.maxFrameSize = size
	}
}
