package mocklogger

import (
	"sync"

	"github.com/hugolhafner/streamtest/logger"
)

var _ logger.Logger = (*MockLogger)(nil)

type LogEntry struct {
	Level   logger.LogLevel
	Message string
	KV      []any
}

// MockLogger records entries for assertions. Safe for concurrent use since
// harness teardown logs from deferred paths while worker goroutines may still
// be logging.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
	args    []any
}

func New() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := append(append([]any{}, m.args...), kv...)
	m.entries = append(
		m.entries, LogEntry{
			Level:   level,
			Message: msg,
			KV:      merged,
		},
	)
}

func (m *MockLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (m *MockLogger) With(kv ...any) logger.Logger {
	return &childLogger{parent: m, args: append(append([]any{}, m.args...), kv...)}
}

func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]LogEntry{}, m.entries...)
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Log(logger.DebugLevel, msg, kv...)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Log(logger.InfoLevel, msg, kv...)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Log(logger.WarnLevel, msg, kv...)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Log(logger.ErrorLevel, msg, kv...)
}

// childLogger forwards to the parent so With-scoped entries stay visible to
// the test's assertions.
type childLogger struct {
	parent *MockLogger
	args   []any
}

var _ logger.Logger = (*childLogger)(nil)

func (c *childLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	c.parent.Log(level, msg, append(append([]any{}, c.args...), kv...)...)
}

func (c *childLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (c *childLogger) With(kv ...any) logger.Logger {
	return &childLogger{parent: c.parent, args: append(append([]any{}, c.args...), kv...)}
}

func (c *childLogger) Debug(msg string, kv ...any) {
	c.Log(logger.DebugLevel, msg, kv...)
}

func (c *childLogger) Info(msg string, kv ...any) {
	c.Log(logger.InfoLevel, msg, kv...)
}

func (c *childLogger) Warn(msg string, kv ...any) {
	c.Log(logger.WarnLevel, msg, kv...)
}

func (c *childLogger) Error(msg string, kv ...any) {
	c.Log(logger.ErrorLevel, msg, kv...)
}
