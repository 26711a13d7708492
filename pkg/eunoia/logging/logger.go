// Package logging provides the leveled logger used across the eunoia client.
// Entries are written as JSON lines, or pretty printed with colors when the output is a terminal.
//
// Arguments that carry a request id and an error code (classified error records) lift both
// onto the entry, so every line about one failed call can be found by its request id.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"eunoia.dev/pkg/eunoia/version"
)

const (
	fileMode   = 0o644
	traceIDKey = "__trace_id__"
)

// PrettyPrint is implemented by messages that render themselves on a terminal.
type PrettyPrint interface {
	PrettyPrint(writer io.Writer)
}

// Correlated is implemented by messages that belong to one classified failure.
type Correlated interface {
	RequestID() string
	ErrorCode() string
}

type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Log(args ...any)
	Logf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Notice(args ...any)
	Noticef(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	ChangeLevel(level Level)
}

type logger struct {
	mu         sync.Mutex
	level      Level
	out        io.Writer
	errOut     io.Writer
	isTerminal bool
}

type entry struct {
	Level         Level     `json:"level"`
	Time          time.Time `json:"time"`
	Message       any       `json:"message"`
	RequestID     string    `json:"request_id,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
	ClientVersion string    `json:"client_version"`
}

// NewLogger writes INFO and below to stdout and ERROR and above to stderr.
func NewLogger(level Level) Logger {
	return &logger{
		level:      level,
		out:        os.Stdout,
		errOut:     os.Stderr,
		isTerminal: checkIfTerminal(os.Stdout),
	}
}

// NewFileLogger appends JSON lines to path. An empty or unwritable path discards everything.
func NewFileLogger(path string) Logger {
	l := &logger{level: INFO, out: io.Discard, errOut: io.Discard}

	if path == "" {
		return l
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return l
	}

	l.out, l.errOut = f, f

	return l
}

func (l *logger) write(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	e := newEntry(level, format, args)

	w := l.out
	if level >= ERROR {
		w = l.errOut
	}

	if l.isTerminal {
		e.pretty(w)
		return
	}

	_ = json.NewEncoder(w).Encode(e)
}

func newEntry(level Level, format string, args []any) *entry {
	e := &entry{Level: level, Time: time.Now(), ClientVersion: version.Client}

	rest := make([]any, 0, len(args))

	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok && e.TraceID == "" {
			if id, ok := m[traceIDKey].(string); ok {
				e.TraceID = id
				continue
			}
		}

		if c, ok := arg.(Correlated); ok && e.RequestID == "" {
			e.RequestID, e.ErrorCode = c.RequestID(), c.ErrorCode()
		}

		rest = append(rest, arg)
	}

	switch {
	case format != "":
		e.Message = fmt.Sprintf(format, rest...)
	case len(rest) == 1:
		e.Message = rest[0]
	default:
		e.Message = rest
	}

	return e
}

func (e *entry) pretty(w io.Writer) {
	fmt.Fprintf(w, "\u001B[38;5;%dm%s\u001B[0m [%s]", e.Level.color(), e.Level.String()[0:4], e.Time.Format(time.TimeOnly))

	if e.TraceID != "" {
		fmt.Fprintf(w, " \u001B[38;5;8m%s\u001B[0m", e.TraceID)
	}

	if e.RequestID != "" {
		fmt.Fprintf(w, " \u001B[38;5;8m%s %s\u001B[0m", e.ErrorCode, e.RequestID)
	}

	fmt.Fprint(w, " ")

	if p, ok := e.Message.(PrettyPrint); ok {
		p.PrettyPrint(w)
		return
	}

	fmt.Fprintf(w, "%v\n", e.Message)
}

func (l *logger) Debug(args ...any) { l.write(DEBUG, "", args...) }
func (l *logger) Debugf(format string, args ...any) { l.write(DEBUG, format, args...) }
func (l *logger) Info(args ...any) { l.write(INFO, "", args...) }
func (l *logger) Infof(format string, args ...any) { l.write(INFO, format, args...) }
func (l *logger) Log(args ...any) { l.write(INFO, "", args...) }
func (l *logger) Logf(format string, args ...any) { l.write(INFO, format, args...) }
func (l *logger) Notice(args ...any) { l.write(NOTICE, "", args...) }
func (l *logger) Noticef(format string, args ...any) { l.write(NOTICE, format, args...) }
func (l *logger) Warn(args ...any) { l.write(WARN, "", args...) }
func (l *logger) Warnf(format string, args ...any) { l.write(WARN, format, args...) }
func (l *logger) Error(args ...any) { l.write(ERROR, "", args...) }
func (l *logger) Errorf(format string, args ...any) { l.write(ERROR, format, args...) }

func (l *logger) Fatal(args ...any) {
	l.write(FATAL, "", args...)

	//nolint:revive // Fatal ends the process with a failure status
	os.Exit(1)
}

func (l *logger) Fatalf(format string, args ...any) {
	l.write(FATAL, format, args...)

	//nolint:revive // Fatal ends the process with a failure status
	os.Exit(1)
}

func (l *logger) ChangeLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func checkIfTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// LogLevelResponder is implemented by errors that choose the level they are logged at.
type LogLevelResponder interface {
	LogLevel() Level
}

// GetLogLevelForError returns the error's own level when it has one, and ERROR otherwise.
func GetLogLevelForError(err error) Level {
	if e, ok := err.(LogLevelResponder); ok {
		return e.LogLevel()
	}

	return ERROR
}
