package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Manager is the Provider used by the client. It keeps the current session in memory, mirrors it into a Store,
// and refreshes it through a Refresher.
//
// Concurrent refreshes are not coalesced: two callers racing at expiry both hit the refresh endpoint and the
// last response to arrive wins.
type Manager struct {
	mu        sync.RWMutex
	current   *Session
	loaded    bool
	listeners []func(Event, *Session)

	store     Store
	refresher Refresher
	logger    Logger
}

// NewManager uses a memory store when store is nil and discards logs when logger is nil.
func NewManager(store Store, refresher Refresher, logger Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}

	if logger == nil {
		logger = nopLogger{}
	}

	return &Manager{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// GetSession returns a copy of the current session, reading it from the store on first use.
func (m *Manager) GetSession(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	if m.loaded {
		s := m.current.clone()
		m.mu.RUnlock()

		return s, nil
	}
	m.mu.RUnlock()

	stored, err := m.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		m.current, m.loaded = stored, true
	}

	return m.current.clone(), nil
}

// SignIn replaces the current session, e.g. with tokens obtained from a login flow.
func (m *Manager) SignIn(ctx context.Context, s *Session) error {
	if !s.Valid() {
		return ErrNoSession
	}

	if err := m.set(ctx, s); err != nil {
		return err
	}

	m.logger.Infof("signed in %s", describe(s))
	m.notify(SignedIn, s)

	return nil
}

// RefreshSession exchanges the held refresh token for a new session. A refresh token missing from the
// response keeps the old one. Failures leave the current session untouched.
func (m *Manager) RefreshSession(ctx context.Context) (*Session, error) {
	cur, err := m.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	if cur == nil {
		return nil, ErrNoSession
	}

	if cur.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	if m.refresher == nil {
		return nil, errors.Wrap(ErrNoRefreshToken, "no refresh backend configured")
	}

	next, err := m.refresher.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "refreshing session")
	}

	if !next.Valid() {
		return nil, ErrNoSession
	}

	if next.RefreshToken == "" {
		next.RefreshToken = cur.RefreshToken
	}

	if next.UserID == "" {
		next.UserID, next.Email = cur.UserID, cur.Email
	}

	if err := m.set(ctx, next); err != nil {
		m.logger.Warnf("refreshed session could not be persisted: %v", err)
	}

	m.logger.Debugf("session refreshed %s", describe(next))
	m.notify(TokenRefreshed, next)

	return next.clone(), nil
}

// SignOut forgets the session in memory and in the store. The in-memory session is dropped even when the
// store fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.current, m.loaded = nil, true
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Errorf("clearing stored session: %v", err)
	}

	m.notify(SignedOut, nil)

	return err
}

func (m *Manager) OnSessionChange(fn func(Event, *Session)) {
	if fn == nil {
		return
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) set(ctx context.Context, s *Session) error {
	m.mu.Lock()
	m.current, m.loaded = s.clone(), true
	m.mu.Unlock()

	return m.store.Save(ctx, s)
}

func (m *Manager) notify(event Event, s *Session) {
	m.mu.RLock()
	listeners := append([]func(Event, *Session){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, s.clone())
	}
}
