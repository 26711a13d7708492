package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// MockEntry is a single line recorded by the MockLogger.
type MockEntry struct {
	Level   Level
	Message string
}

// MockLogger writes plain lines to stdout/stderr and keeps every emitted entry in memory,
// so tests can assert on the level a message was logged at.
type MockLogger struct {
	mu      sync.Mutex
	level   Level
	out     io.Writer
	errOut  io.Writer
	entries []MockEntry
}

func NewMockLogger(level Level) *MockLogger {
	return &MockLogger{
		level:  level,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

func (m *MockLogger) logf(level Level, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if level < m.level {
		return
	}

	out := m.out
	if level >= ERROR {
		out = m.errOut
	}

	var message string

	switch {
	case len(args) == 1 && format == "":
		message = fmt.Sprint(args[0])
	case format == "":
		message = fmt.Sprint(args...)
	default:
		message = fmt.Sprintf(format, args...)
	}

	m.entries = append(m.entries, MockEntry{Level: level, Message: message})

	fmt.Fprintf(out, "%v\n", message)
}

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []MockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]MockEntry(nil), m.entries...)
}

// EntriesAt returns the entries logged at the given level.
func (m *MockLogger) EntriesAt(level Level) []MockEntry {
	var out []MockEntry

	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}

	return out
}

func (m *MockLogger) Debug(args ...any) {
	m.logf(DEBUG, "", args...)
}

func (m *MockLogger) Debugf(format string, args ...any) {
	m.logf(DEBUG, format, args...)
}

func (m *MockLogger) Info(args ...any) {
	m.logf(INFO, "", args...)
}

func (m *MockLogger) Infof(format string, args ...any) {
	m.logf(INFO, format, args...)
}

func (m *MockLogger) Notice(args ...any) {
	m.logf(NOTICE, "", args...)
}

func (m *MockLogger) Noticef(format string, args ...any) {
	m.logf(NOTICE, format, args...)
}

func (m *MockLogger) Warn(args ...any) {
	m.logf(WARN, "", args...)
}

func (m *MockLogger) Warnf(format string, args ...any) {
	m.logf(WARN, format, args...)
}

func (m *MockLogger) Error(args ...any) {
	m.logf(ERROR, "", args...)
}

func (m *MockLogger) Errorf(format string, args ...any) {
	m.logf(ERROR, format, args...)
}

// Fatal records at FATAL level without exiting the process.
func (m *MockLogger) Fatal(args ...any) {
	m.logf(FATAL, "", args...)
}

func (m *MockLogger) Fatalf(format string, args ...any) {
	m.logf(FATAL, format, args...)
}

func (m *MockLogger) Log(args ...any) {
	m.logf(INFO, "", args...)
}

func (m *MockLogger) Logf(format string, args ...any) {
	m.logf(INFO, format, args...)
}

func (m *MockLogger) ChangeLevel(level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = level
}
