// pattern: Imperative Shell

package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

// TestLogManager is a LoggerProvider for tests. Every entry, down to DEBUG,
// lands on a channel instead of a file.
type TestLogManager struct {
	sink    *ChannelSink
	base    *zap.Logger
	loggers map[string]*ScopedLogger
	mu      sync.Mutex
}

// NewTestLogManager creates a TestLogManager buffering up to bufferSize entries.
func NewTestLogManager(bufferSize int) *TestLogManager {
	sink := NewChannelSink(bufferSize)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonEncoderConfig()),
		zapcore.AddSync(sink),
		zapcore.DebugLevel,
	)
	return &TestLogManager{
		sink:    sink,
		base:    zap.New(core),
		loggers: make(map[string]*ScopedLogger),
	}
}

// For returns a scoped logger, matching the production Manager API.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, ok := m.loggers[scope]; ok {
		return logger
	}
	logger := newScopedLogger(m.base, scope)
	m.loggers[scope] = logger
	return logger
}

// Channel returns the channel for receiving log entries.
func (m *TestLogManager) Channel() <-chan LogEntry {
	return m.sink.Entries()
}

// Drain returns every entry currently buffered without blocking.
func (m *TestLogManager) Drain() []LogEntry {
	var entries []LogEntry
	for {
		select {
		case e, ok := <-m.sink.Entries():
			if !ok {
				return entries
			}
			entries = append(entries, e)
		default:
			return entries
		}
	}
}

// Close closes the test log manager.
func (m *TestLogManager) Close() error {
	return m.sink.Close()
}
