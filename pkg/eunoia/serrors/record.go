package serrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"eunoia.dev/pkg/eunoia/logging"
)

// Record is the classified, immutable description of one failure. It is safe to share between goroutines.
type Record struct {
	code        Code
	message     string
	detail      string
	severity    Severity
	ctx         Context
	userMessage string
	status      int
	cause       any
}

var _ logging.Correlated = (*Record)(nil)

func (r *Record) Code() Code { return r.code }
func (r *Record) Message() string { return r.message }
func (r *Record) Detail() string { return r.detail }
func (r *Record) Severity() Severity { return r.severity }
func (r *Record) UserMessage() string { return r.userMessage }
func (r *Record) RequestID() string { return r.ctx.RequestID }
func (r *Record) ErrorCode() string { return r.code.String() }
func (r *Record) Timestamp() time.Time { return r.ctx.Timestamp }
func (r *Record) Retryable() bool { return r.code.Retryable() }
func (r *Record) OriginalError() any { return r.cause }
func (r *Record) LogLevel() logging.Level { return r.severity.LogLevel() }

// Status is the HTTP status that produced the record, or 0 when there was no response.
func (r *Record) Status() int { return r.status }

// Context returns a copy of the record's context.
func (r *Record) Context() Context {
	c := r.ctx
	c.AdditionalData = maps.Clone(r.ctx.AdditionalData)

	return c
}

// Error returns the developer-facing description. It is never meant for display to users.
func (r *Record) Error() string {
	if r.detail != "" {
		return fmt.Sprintf("[%s] %s: %s", r.code, r.message, r.detail)
	}

	return fmt.Sprintf("[%s] %s", r.code, r.message)
}

func (r *Record) Unwrap() error {
	if err, ok := r.cause.(error); ok {
		return err
	}

	return nil
}

// Is matches another *Record by code, so errors.Is(err, serrors.Sentinel(serrors.Unauthorized)) works.
func (r *Record) Is(target error) bool {
	var other *Record
	if !errors.As(target, &other) {
		return false
	}

	return other.code == r.code && other.message == "" && other.ctx.RequestID == ""
}

// Sentinel returns a record usable only as an errors.Is target for code.
func Sentinel(code Code) error {
	return &Record{code: code}
}

type envelope struct {
	Error envelopeBody `json:"error"`
}

type envelopeBody struct {
	Code        Code           `json:"code"`
	Message     string         `json:"message"`
	Detail      string         `json:"detail,omitempty"`
	Severity    Severity       `json:"severity"`
	RequestID   string         `json:"request_id"`
	Timestamp   time.Time      `json:"timestamp"`
	UserID      string         `json:"user_id,omitempty"`
	Component   string         `json:"component,omitempty"`
	Action      string         `json:"action,omitempty"`
	Status      int            `json:"status,omitempty"`
	UserMessage string         `json:"user_message"`
	Retryable   bool           `json:"retryable"`
	Additional  map[string]any `json:"additional_data,omitempty"`
}

// MarshalJSON renders the record in the {"error": {...}} envelope the journal API uses.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Error: envelopeBody{
		Code:        r.code,
		Message:     r.message,
		Detail:      r.detail,
		Severity:    r.severity,
		RequestID:   r.ctx.RequestID,
		Timestamp:   r.ctx.Timestamp,
		UserID:      r.ctx.UserID,
		Component:   r.ctx.Component,
		Action:      r.ctx.Action,
		Status:      r.status,
		UserMessage: r.userMessage,
		Retryable:   r.Retryable(),
		Additional:  r.ctx.AdditionalData,
	}})
}

func (r *Record) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;%dm%s\u001B[0m %s", severityColor(r.severity), r.code, r.message)

	if r.detail != "" {
		fmt.Fprintf(writer, " - %s", r.detail)
	}

	fmt.Fprintf(writer, " \u001B[38;5;8m%s\u001B[0m", r.ctx.RequestID)

	if r.ctx.UserID != "" {
		fmt.Fprintf(writer, " user=%s", r.ctx.UserID)
	}

	if r.ctx.Component != "" || r.ctx.Action != "" {
		fmt.Fprintf(writer, " %s/%s", r.ctx.Component, r.ctx.Action)
	}

	fmt.Fprintln(writer)
}

func severityColor(s Severity) int {
	const (
		blue   = 36
		yellow = 220
		red    = 202
		purple = 160
	)

	switch s {
	case Critical:
		return purple
	case High:
		return red
	case Medium:
		return yellow
	default:
		return blue
	}
}
