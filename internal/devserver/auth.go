package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func writeGrantError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}

// token serves POST /auth/v1/token for the password and refresh_token grants. The body may be JSON or a form.
// Unknown emails are registered on first sign-in. Refresh tokens are single use.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AnonKey != "" && r.Header.Get("apikey") != s.cfg.AnonKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
		return
	}

	params, err := grantParams(r)
	if err != nil {
		writeGrantError(w, http.StatusBadRequest, "invalid_request", "could not parse request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var u *user

	switch params["grant_type"] {
	case "password":
		email, password := strings.ToLower(strings.TrimSpace(params["email"])), params["password"]
		if email == "" || password == "" {
			writeGrantError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
			return
		}

		u = s.users[email]

		switch {
		case u == nil:
			u = &user{id: uuid.NewString(), email: email, password: password}
			s.users[email] = u
		case u.password != password:
			writeGrantError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
			return
		}
	case "refresh_token":
		email, ok := s.refresh[params["refresh_token"]]
		if !ok {
			writeGrantError(w, http.StatusBadRequest, "invalid_grant", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}

		delete(s.refresh, params["refresh_token"])

		u = s.users[email]
	default:
		writeGrantError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be password or refresh_token")
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		writeGrantError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// issue signs an access token for u and stores a fresh refresh token. s.mu must be held.
func (s *Server) issue(u *user) (*tokenResponse, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.id,
		"email": u.email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, err
	}

	resp := &tokenResponse{
		AccessToken:  signed,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.TokenTTL.Seconds()),
		ExpiresAt:    exp.Unix(),
		RefreshToken: uuid.NewString(),
	}
	resp.User.ID = u.id
	resp.User.Email = u.email

	s.refresh[resp.RefreshToken] = u.email

	return resp, nil
}

func grantParams(r *http.Request) (map[string]string, error) {
	params := map[string]string{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}

		for k, v := range body {
			if str, ok := v.(string); ok {
				params[k] = str
			}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}

		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
	}

	if gt := r.URL.Query().Get("grant_type"); gt != "" {
		params["grant_type"] = gt
	}

	return params, nil
}
