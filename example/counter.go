package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/framed"
)

type op int

const (
	opAdd op = iota + 1
	opSub
	opPrint
	opOk
	opErr
	opValue
)

type message struct {
	Op  op
	Arg int32
}

// counter is the per-connection state.
type counter struct {
	value int32
}

func handlers(logger *slog.Logger) framed.Handlers[counter, message] {
	return framed.Handlers[counter, message]{
		OnOpen: func(c *framed.Conn[counter, message]) {
			logger.Info("client connected", "id", c.ID(), "addr", c.Addr())
		},
		OnMessage: func(c *framed.Conn[counter, message], msg message) {
			var reply message
			switch msg.Op {
			case opAdd:
				c.State.value += msg.Arg
				reply = message{Op: opOk}
			case opSub:
				c.State.value -= msg.Arg
				reply = message{Op: opOk}
			case opPrint:
				reply = message{Op: opValue, Arg: c.State.value}
			default:
				reply = message{Op: opErr}
			}

			if err := c.Send(reply); err != nil {
				logger.Warn("failed to reply", "id", c.ID(), "error", err)
				_ = c.Close()
			}
		},
		OnClosed: func(c *framed.Conn[counter, message]) {
			logger.Info("client disconnected", "id", c.ID(), "value", c.State.value)
		},
		OnClosedUnexpectedly: func(c *framed.Conn[counter, message]) {
			logger.Warn("client dropped mid-frame", "id", c.ID(), "value", c.State.value)
		},
		OnError: func(c *framed.Conn[counter, message], err error) {
			logger.Error("connection failed", "id", c.ID(), "error", err)
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger, addr string) error {
	server, err := framed.Bind(addr, handlers(logger), framed.ServerLoggerOption(logger))
	if err != nil {
		return err
	}

	logger.Info("server start", "addr", server.Addr())
	return server.Run(ctx)
}

func client(ctx context.Context, logger *slog.Logger, addr string) error {
	c, err := framed.Dial[message](ctx, addr, framed.ClientLoggerOption(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	for _, msg := range []message{{Op: opAdd, Arg: 5}, {Op: opAdd, Arg: 3}, {Op: opPrint}} {
		if err := c.Send(msg); err != nil {
			return err
		}

		reply, err := c.Recv()
		if err != nil {
			return err
		}
		logger.Info("reply", "request", msg.Op, "op", reply.Op, "arg", reply.Arg)
	}
	return nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "address to listen on or connect to")
	asClient := flag.Bool("client", false, "run the client scenario instead of the server")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := serve
	if *asClient {
		run = client
	}

	if err := run(ctx, logger, *addr); err != nil && ctx.Err() == nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
}
