// Package handler keeps the error and loading state of one screen or command and lets it retry the last operation.
package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/serrors"
)

// ErrNothingToRetry is returned by Retry before any operation ran.
var ErrNothingToRetry = errors.New("no operation to retry")

// Operation is the unit of work HandleAsync runs.
type Operation func(ctx context.Context) error

// State is a snapshot passed to subscribers after every change.
type State struct {
	Err     *serrors.Record
	Loading bool
}

type Handler struct {
	errs   *serrors.Service
	logger logging.Logger

	mu        sync.Mutex
	state     State
	last      Operation
	listeners []func(State)
}

// New returns a Handler reporting unclassified failures to errs. logger may be nil.
func New(errs *serrors.Service, logger logging.Logger) *Handler {
	if errs == nil {
		errs = serrors.NewService(nil, nil)
	}

	return &Handler{errs: errs, logger: logger}
}

// Error is the failure of the last operation, or nil.
func (h *Handler) Error() *serrors.Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.Err
}

func (h *Handler) IsLoading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.Loading
}

// Subscribe registers fn to receive every state change.
func (h *Handler) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}

	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// HandleAsync runs op and remembers it for Retry. The previous error is cleared when op starts.
// A failure is stored and returned as a *serrors.Record; errors that are not records yet are classified,
// and a panic becomes a critical unknown record.
func (h *Handler) HandleAsync(ctx context.Context, op Operation) error {
	if op == nil {
		return nil
	}

	h.mu.Lock()
	h.last = op
	h.mu.Unlock()

	return h.run(ctx, op)
}

// Retry runs the last operation again.
func (h *Handler) Retry(ctx context.Context) error {
	h.mu.Lock()
	op := h.last
	h.mu.Unlock()

	if op == nil {
		return ErrNothingToRetry
	}

	return h.run(ctx, op)
}

func (h *Handler) ClearError() {
	h.set(func(s *State) { s.Err = nil })
}

func (h *Handler) run(ctx context.Context, op Operation) error {
	h.set(func(s *State) {
		s.Err = nil
		s.Loading = true
	})

	rec := h.invoke(ctx, op)

	h.set(func(s *State) {
		s.Err = rec
		s.Loading = false
	})

	if rec == nil {
		return nil
	}

	return rec
}

func (h *Handler) invoke(ctx context.Context, op Operation) (rec *serrors.Record) {
	defer func() {
		if re := recover(); re != nil {
			logging.LogPanic(re, h.logger)

			rec = h.errs.Create(serrors.Unknown, "An unexpected error occurred",
				serrors.WithSeverity(serrors.Critical),
				serrors.WithDetail(fmt.Sprint(re)),
				serrors.WithCause(re),
				serrors.WithContext(serrors.NewContext("handler", "handle_async")))
		}
	}()

	err := op(ctx)
	if err == nil {
		return nil
	}

	if errors.As(err, &rec) && rec != nil {
		return rec
	}

	return h.errs.ClassifyHTTPFailure(err, serrors.NewContext("handler", "handle_async"))
}

func (h *Handler) set(change func(*State)) {
	h.mu.Lock()
	change(&h.state)
	snapshot := h.state
	listeners := append([]func(State){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
