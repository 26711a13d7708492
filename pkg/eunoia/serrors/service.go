package serrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrorsTotal counts created records by code and severity.
const ErrorsTotal = "eunoia_errors_total"

type Logger interface {
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

type Metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
}

// Service classifies failures into Records and keeps every Record created during the process lifetime.
// Construct one per client and pass it down; instances share nothing.
type Service struct {
	mu      sync.RWMutex
	records []*Record

	logger  Logger
	metrics Metrics
	sinks   []func(*Record)
	now     func() time.Time
}

type ServiceOption func(*Service)

// WithSink registers fn to receive every created record, after it has been logged.
func WithSink(fn func(*Record)) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.sinks = append(s.sinks, fn)
		}
	}
}

// NewService returns a classification service. logger and metrics may be nil.
func NewService(logger Logger, metrics Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Option adjusts a record being created.
type Option func(*Record)

func WithDetail(detail string) Option {
	return func(r *Record) { r.detail = detail }
}

func WithSeverity(s Severity) Option {
	return func(r *Record) {
		if s.valid() {
			r.severity = s
		}
	}
}

// WithContext sets the record context. Missing request id and timestamp are filled in.
func WithContext(c Context) Option {
	return func(r *Record) { r.ctx = c }
}

// WithCause attaches the value that caused the failure. Any value is accepted, including nil.
func WithCause(cause any) Option {
	return func(r *Record) { r.cause = cause }
}

func WithUserMessage(msg string) Option {
	return func(r *Record) {
		if msg != "" {
			r.userMessage = msg
		}
	}
}

func WithStatus(status int) Option {
	return func(r *Record) { r.status = status }
}

// Create builds a record, appends it to the log and emits it. It never panics.
func (s *Service) Create(code Code, message string, opts ...Option) *Record {
	rec := s.build(code, message, opts)

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.emit(rec)

	return rec
}

func (s *Service) build(code Code, message string, opts []Option) (rec *Record) {
	if !code.Valid() {
		code = Unknown
	}

	rec = &Record{
		code:     code,
		message:  message,
		severity: Medium,
	}

	defer func() {
		// a broken option leaves the record with whatever was applied before it.
		if re := recover(); re != nil {
			rec.detail = fmt.Sprintf("%s (option panicked: %v)", rec.detail, re)
		}

		s.finish(rec)
	}()

	for _, opt := range opts {
		if opt != nil {
			opt(rec)
		}
	}

	return rec
}

func (s *Service) finish(rec *Record) {
	rec.ctx = rec.ctx.filled(s.now())

	if rec.userMessage == "" {
		rec.userMessage = rec.code.UserMessage()
	}

	if rec.message == "" {
		rec.message = rec.code.String()
	}
}

func (s *Service) emit(rec *Record) {
	if s.metrics != nil {
		guard(func() {
			s.metrics.IncrementCounter(context.Background(), ErrorsTotal,
				"code", rec.code.String(), "severity", rec.severity.String())
		})
	}

	if s.logger != nil {
		guard(func() {
			switch rec.severity {
			case Critical, High:
				s.logger.Error(rec)
			case Medium:
				s.logger.Warn(rec)
			default:
				s.logger.Info(rec)
			}
		})
	}

	for _, sink := range s.sinks {
		guard(func() { sink(rec) })
	}
}

// guard runs a caller-supplied stage of emit; a panic there ends only that stage.
func guard(stage func()) {
	defer func() { _ = recover() }()

	stage()
}

// ClassifyHTTPFailure maps a transport failure onto a record. err is expected to be one of
// *HTTPFailure, *NetworkFailure or *LocalFailure; anything else becomes an unknown record.
func (s *Service) ClassifyHTTPFailure(err error, c Context) *Record {
	var (
		httpErr *HTTPFailure
		netErr  *NetworkFailure
	)

	switch {
	case errors.As(err, &httpErr) && httpErr != nil:
		code, severity, message := classifyStatus(httpErr.Status)

		detail := httpErr.Detail()
		if detail == "" {
			detail = httpErr.Error()
		}

		return s.Create(code, message,
			WithSeverity(severity),
			WithDetail(detail),
			WithStatus(httpErr.Status),
			WithContext(c),
			WithCause(err),
		)
	case errors.As(err, &netErr) && netErr != nil:
		if netErr.Timeout() {
			return s.Create(Timeout, "Request timed out",
				WithSeverity(High), WithDetail(safeMessage(err)), WithContext(c), WithCause(err))
		}

		return s.Create(Network, "Network error - unable to reach server",
			WithSeverity(High), WithDetail(safeMessage(err)), WithContext(c), WithCause(err))
	default:
		return s.Create(Unknown, "An unexpected error occurred",
			WithSeverity(Medium), WithDetail(safeMessage(err)), WithContext(c), WithCause(err))
	}
}

func classifyStatus(status int) (Code, Severity, string) {
	switch status {
	case http.StatusBadRequest:
		return Validation, Medium, "Invalid request data"
	case http.StatusUnauthorized:
		return Unauthorized, High, "Authentication required"
	case http.StatusForbidden:
		return Forbidden, High, "Access forbidden"
	case http.StatusNotFound:
		return NotFound, Medium, "Resource not found"
	case http.StatusRequestTimeout:
		return Timeout, Medium, "Request timeout"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ServerError, High, "Server error"
	default:
		return ServerError, Medium, fmt.Sprintf("HTTP %d error", status)
	}
}

func safeMessage(err error) (msg string) {
	if err == nil {
		return ""
	}

	defer func() {
		if re := recover(); re != nil {
			msg = fmt.Sprintf("%T", err)
		}
	}()

	return err.Error()
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all of them.
func (s *Service) Recent(limit int) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*Record, 0, n)

	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}

	return out
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Clear empties the log.
func (s *Service) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
