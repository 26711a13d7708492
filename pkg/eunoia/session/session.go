// Package session holds the signed-in user's tokens, persists them, and refreshes them against the auth backend.
package session

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -source=session.go -destination=mock_session.go -package=session

var (
	// ErrNoSession is returned when an operation needs a session and none is held.
	ErrNoSession = errors.New("no active session")
	// ErrNoRefreshToken is returned when the held session cannot be refreshed.
	ErrNoRefreshToken = errors.New("session has no refresh token")
)

// Session is an access token with its refresh token and expiry.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
}

// Valid reports whether s carries an access token.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// Remaining is the time left before the access token expires. A session without expiry never runs out.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}

	return s.ExpiresAt.Sub(now)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}

	c := *s

	return &c
}

// Event names a session transition reported to OnSessionChange listeners.
type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	TokenRefreshed Event = "TOKEN_REFRESHED"
	SignedOut      Event = "SIGNED_OUT"
)

// Provider is the source of the current session.
type Provider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// RefreshSession exchanges the refresh token for a new session and stores it.
	RefreshSession(ctx context.Context) (*Session, error)
	// SignOut drops the session locally and in every persisted store.
	SignOut(ctx context.Context) error
	// OnSessionChange registers fn to be called after every transition.
	OnSessionChange(fn func(Event, *Session))
}

// Store persists a session between process runs.
type Store interface {
	// Load returns the stored session, or nil when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Authenticator is a Refresher that can also open a session from credentials.
type Authenticator interface {
	Refresher
	SignIn(ctx context.Context, email, password string) (*Session, error)
}
