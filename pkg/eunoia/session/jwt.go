package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var errNoExpiry = errors.New("token has no exp claim")

// FromTokens builds a session from a JWT access token, reading exp, sub and email from its claims.
// The signature is not verified.
func FromTokens(accessToken, refreshToken string) (*Session, error) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, errors.Wrap(err, "parsing access token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, errors.Wrap(err, "reading exp claim")
	}

	if exp == nil {
		return nil, errNoExpiry
	}

	s := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    exp.Time,
	}

	if sub, err := claims.GetSubject(); err == nil {
		s.UserID = sub
	}

	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}

	return s, nil
}

// expiryOf returns the exp claim of a JWT, or the zero time when the token is opaque.
func expiryOf(accessToken string) time.Time {
	s, err := FromTokens(accessToken, "")
	if err != nil {
		return time.Time{}
	}

	return s.ExpiresAt
}

func describe(s *Session) string {
	if s == nil {
		return "<none>"
	}

	return fmt.Sprintf("user=%s expires=%s", s.UserID, s.ExpiresAt.Format(time.RFC3339))
}
