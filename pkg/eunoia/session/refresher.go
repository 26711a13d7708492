package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// RefreshError is an auth backend rejecting a refresh token.
type RefreshError struct {
	Status  int
	Message string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh rejected with status %d: %s", e.Status, e.Message)
}

// SupabaseRefresher refreshes sessions against a Supabase (GoTrue) auth endpoint.
type SupabaseRefresher struct {
	baseURL string
	anonKey string
	client  *http.Client
	now     func() time.Time
}

func NewSupabaseRefresher(baseURL, anonKey string, client *http.Client) *SupabaseRefresher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SupabaseRefresher{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  client,
		now:     time.Now,
	}
}

type supabaseToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type supabaseError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e supabaseError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}

	return "unknown error"
}

func (r *SupabaseRefresher) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	return r.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignIn exchanges an email and password for a new session.
func (r *SupabaseRefresher) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return r.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

func (r *SupabaseRefresher) grant(ctx context.Context, grantType string, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := r.baseURL + "/auth/v1/token?grant_type=" + grantType

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request", grantType)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.anonKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling supabase token endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading token response")
	}

	if resp.StatusCode != http.StatusOK {
		var e supabaseError

		_ = json.Unmarshal(raw, &e)

		return nil, &RefreshError{Status: resp.StatusCode, Message: e.text()}
	}

	var tok supabaseToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, errors.Wrap(err, "decoding token response")
	}

	if tok.AccessToken == "" {
		return nil, &RefreshError{Status: resp.StatusCode, Message: "response carries no access token"}
	}

	s := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UserID:       tok.User.ID,
		Email:        tok.User.Email,
	}

	switch {
	case tok.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		s.ExpiresAt = r.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		s.ExpiresAt = expiryOf(tok.AccessToken)
	}

	return s, nil
}

// OAuth2Refresher refreshes sessions through the refresh_token grant of any OAuth2 token endpoint.
type OAuth2Refresher struct {
	config *oauth2.Config
	client *http.Client
}

// NewOAuth2Refresher uses client for the token request when non-nil.
func NewOAuth2Refresher(tokenURL, clientID, clientSecret string, client *http.Client) *OAuth2Refresher {
	return &OAuth2Refresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		client: client,
	}
}

func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}

	// an already expired token forces the source to use the refresh grant.
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}

	tok, err := r.config.TokenSource(ctx, expired).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &RefreshError{Status: re.Response.StatusCode, Message: strings.TrimSpace(string(re.Body))}
		}

		return nil, errors.Wrap(err, "oauth2 refresh")
	}

	return fromOAuth2(tok, refreshToken), nil
}

// SignIn runs the resource owner password grant.
func (r *OAuth2Refresher) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}

	tok, err := r.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &RefreshError{Status: re.Response.StatusCode, Message: strings.TrimSpace(string(re.Body))}
		}

		return nil, errors.Wrap(err, "oauth2 password grant")
	}

	return fromOAuth2(tok, ""), nil
}

func fromOAuth2(tok *oauth2.Token, refreshToken string) *Session {
	s := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}

	if s.RefreshToken == "" {
		s.RefreshToken = refreshToken
	}

	if parsed, err := FromTokens(tok.AccessToken, ""); err == nil {
		s.UserID, s.Email = parsed.UserID, parsed.Email

		if s.ExpiresAt.IsZero() {
			s.ExpiresAt = parsed.ExpiresAt
		}
	}

	return s
}
