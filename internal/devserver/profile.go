package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"eunoia.dev/pkg/eunoia/journal"
)

var roles = map[string]bool{"user": true, "admin": true, "moderator": true}

// profile returns u's profile, creating it on first access. s.mu must be held.
func (s *Server) profile(u *user) *journal.Profile {
	if p, ok := s.profiles[u.id]; ok {
		return p
	}

	now := journal.Time{Time: s.now().UTC()}
	name, _, _ := strings.Cut(u.email, "@")

	p := &journal.Profile{
		ID:          len(s.profiles) + 1,
		UserID:      u.id,
		Email:       u.email,
		DisplayName: name,
		Role:        "user",
		IsActive:    "true",
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLogin:   now,
	}
	s.profiles[u.id] = p

	return p
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := *s.profile(currentUser(r))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body journal.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalid(w, "body", "display_name", "invalid JSON body")
		return
	}

	if body.DisplayName != nil {
		if n := utf8.RuneCountInString(*body.DisplayName); n < 2 || n > 50 {
			writeInvalid(w, "body", "display_name", "Display name must be between 2 and 50 characters")
			return
		}
	}

	if body.Role != nil && !roles[*body.Role] {
		writeInvalid(w, "body", "role", "Role must be one of user, admin, moderator")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profile(currentUser(r))

	if body.FullName != nil {
		p.FullName = *body.FullName
	}

	if body.DisplayName != nil {
		p.DisplayName = *body.DisplayName
	}

	if body.Role != nil {
		p.Role = *body.Role
	}

	if body.IsActive != nil {
		p.IsActive = *body.IsActive
	}

	p.UpdatedAt = journal.Time{Time: s.now().UTC()}

	writeJSON(w, http.StatusOK, *p)
}
