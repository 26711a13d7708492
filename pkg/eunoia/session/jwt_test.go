package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestFromTokens(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	token := signedToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "writer@example.com",
		"exp":   exp.Unix(),
	})

	s, err := FromTokens(token, "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, token, s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "writer@example.com", s.Email)
	assert.True(t, exp.Equal(s.ExpiresAt))
}

func TestFromTokens_Errors(t *testing.T) {
	tests := []struct {
		desc  string
		token string
	}{
		{"opaque token", "not-a-jwt"},
		{"empty token", ""},
		{"no exp claim", signedToken(t, jwt.MapClaims{"sub": "user-1"})},
		{"exp of wrong type", signedToken(t, jwt.MapClaims{"exp": "tomorrow"})},
	}

	for i, tc := range tests {
		s, err := FromTokens(tc.token, "")

		assert.Nilf(t, s, "TEST[%d], Failed.\n%s", i, tc.desc)
		require.Errorf(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
	}

	assert.True(t, expiryOf("not-a-jwt").IsZero())
}

func TestSession_Remaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		desc      string
		session   Session
		remaining time.Duration
	}{
		{"four minutes left", Session{ExpiresAt: now.Add(4 * time.Minute)}, 4 * time.Minute},
		{"already expired", Session{ExpiresAt: now.Add(-time.Minute)}, -time.Minute},
	}

	for i, tc := range tests {
		assert.Equalf(t, tc.remaining, tc.session.Remaining(now), "TEST[%d], Failed.\n%s", i, tc.desc)
	}

	noExpiry := Session{AccessToken: "opaque"}
	assert.Greater(t, noExpiry.Remaining(now), 100*365*24*time.Hour)

	var none *Session
	assert.False(t, none.Valid())
	assert.True(t, noExpiry.Valid())
}
