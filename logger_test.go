package framed

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_Interface(t *testing.T) {
	// *slog.Logger satisfies Logger
	var _ Logger = slog.Default()
}

func TestDefaultLogger(t *testing.T) {
	logger := defaultLogger()
	require.NotNil(t, logger)
	require.Equal(t, slog.Default(), logger)
}

func TestDiscardLogger(t *testing.T) {
	require.NotNil(t, DiscardLogger)

	DiscardLogger.Debug("debug message", "key", "value")
	DiscardLogger.Info("info message", "key", "value")
	DiscardLogger.Warn("warn message", "key", "value")
	DiscardLogger.Error("error message", "key", "value")

	h := discardHandler{}
	require.False(t, h.Enabled(context.Background(), slog.LevelError))
	require.Equal(t, h, h.WithAttrs(nil))
	require.Equal(t, h, h.WithGroup("g"))
}

// mockLogger records the messages it is given.
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+" "+msg)
}

func (l *mockLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg) }
func (l *mockLogger) Info(msg string, args ...any)  { l.record("INFO", msg) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.record("WARN", msg) }
func (l *mockLogger) Error(msg string, args ...any) { l.record("ERROR", msg) }

func (l *mockLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.messages {
		if m == entry {
			return true
		}
	}
	return false
}

func TestLogger_ConnectionLifecycle(t *testing.T) {
	logger := &mockLogger{}
	s := newManualServer(t, counterHandlers())
	s.logger = logger

	c := dial(t, s)
	accept(t, s)
	s.iterate(nil, time.Now())
	require.True(t, logger.has("INFO connection established"))

	require.NoError(t, c.Close())
	step(t, s, 1)
	require.True(t, logger.has("INFO connection closed"))
}
