package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"eunoia.dev/pkg/eunoia/journal"
)

const entryNotFound = "Entry not found"

type entryBody struct {
	Content *string       `json:"content"`
	Date    *journal.Time `json:"date"`
}

// normalize collapses whitespace runs and enforces the content bounds.
func normalize(content string) (string, string) {
	content = strings.Join(strings.Fields(content), " ")

	switch {
	case content == "":
		return "", "Content cannot be empty"
	case utf8.RuneCountInString(content) > journal.MaxContentLength:
		return "", fmt.Sprintf("Content cannot exceed %d characters", journal.MaxContentLength)
	}

	return content, ""
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var body entryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalid(w, "body", "content", "invalid JSON body")
		return
	}

	if body.Content == nil {
		writeInvalid(w, "body", "content", "field required")
		return
	}

	content, msg := normalize(*body.Content)
	if msg != "" {
		writeInvalid(w, "body", "content", msg)
		return
	}

	now := s.now().UTC()

	e := &journal.Entry{
		Date:      journal.Time{Time: now},
		Content:   content,
		CreatedAt: journal.Time{Time: now},
		UpdatedAt: journal.Time{Time: now},
	}

	if body.Date != nil && !body.Date.IsZero() {
		e.Date = *body.Date
	}

	analyze(e)

	s.mu.Lock()
	s.nextID++
	e.ID = s.nextID
	s.entries[e.ID] = e
	s.owners[e.ID] = currentUser(r).id
	created := *e
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	page, ok := intParam(w, r, "page", 1, 1, maxPage)
	if !ok {
		return
	}

	perPage, ok := intParam(w, r, "per_page", journal.DefaultPerPage, 1, journal.MaxPerPage)
	if !ok {
		return
	}

	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	emotion, group := q.Get("emotion"), q.Get("emotion_group")

	var matched []journal.Entry

	for _, e := range s.owned(currentUser(r)) {
		switch {
		case search != "" && !strings.Contains(strings.ToLower(e.Content), search):
			continue
		case emotion != "" && e.Emotion != emotion:
			continue
		case group != "" && e.EmotionGroup != group:
			continue
		}

		matched = append(matched, e)
	}

	sortEntries(matched, q.Get("sort_by"), q.Get("sort_order") == "asc")

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage

	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	writeJSON(w, http.StatusOK, journal.Page{
		Entries:    append([]journal.Entry{}, matched[start:end]...),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	})
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	var body entryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalid(w, "body", "content", "invalid JSON body")
		return
	}

	var content string

	if body.Content != nil {
		var msg string
		if content, msg = normalize(*body.Content); msg != "" {
			writeInvalid(w, "body", "content", msg)
			return
		}
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.owners[id] != currentUser(r).id {
		writeDetail(w, http.StatusNotFound, entryNotFound)
		return
	}

	if body.Content != nil && content != e.Content {
		e.Content = content
		analyze(e)
	}

	if body.Date != nil && !body.Date.IsZero() {
		e.Date = *body.Date
	}

	e.UpdatedAt = journal.Time{Time: s.now().UTC()}

	writeJSON(w, http.StatusOK, *e)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok || s.owners[id] != currentUser(r).id {
		writeDetail(w, http.StatusNotFound, entryNotFound)
		return
	}

	delete(s.entries, id)
	delete(s.owners, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Entry deleted successfully"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (journal.Entry, bool) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.owners[id] != currentUser(r).id {
		writeDetail(w, http.StatusNotFound, entryNotFound)
		return journal.Entry{}, false
	}

	return *e, true
}

// owned returns copies of u's entries, newest first.
func (s *Server) owned(u *user) []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []journal.Entry

	for id, e := range s.entries {
		if s.owners[id] == u.id {
			out = append(out, *e)
		}
	}

	sortEntries(out, "created_at", false)

	return out
}

// sortEntries orders by field, falling back to created_at for unknown fields. Ties break on id.
func sortEntries(entries []journal.Entry, field string, asc bool) {
	key := func(e journal.Entry) float64 {
		switch field {
		case "date":
			return float64(e.Date.UnixNano())
		case "sentiment_score":
			return deref(e.SentimentScore)
		case "stress_level":
			return deref(e.StressLevel)
		default:
			return float64(e.CreatedAt.UnixNano())
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := key(entries[i]), key(entries[j])
		if a == b {
			a, b = float64(entries[i].ID), float64(entries[j].ID)
		}

		if asc {
			return a < b
		}

		return a > b
	})
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}

const maxPage = 1<<31 - 1

// intParam reads an optional integer query parameter within [lo, hi]. It answers 422 and reports false when invalid.
func intParam(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		writeInvalid(w, "query", name, fmt.Sprintf("ensure this value is an integer between %d and %d", lo, hi))
		return 0, false
	}

	return v, true
}

func dayOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
