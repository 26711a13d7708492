// Package devserver is an in-memory journal backend for local runs and end-to-end tests.
// It serves the journal REST surface and a Supabase-compatible token endpoint, and rejects missing
// or expired tokens with 401 {"detail": ...} the way the production backend does.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"eunoia.dev/pkg/eunoia/journal"
	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/metrics"
)

const (
	defaultTokenTTL = time.Hour
	responseMetric  = "app_http_response"
)

// Config holds the token settings. An empty AnonKey disables the apikey check on the token endpoint.
type Config struct {
	Secret   string
	AnonKey  string
	TokenTTL time.Duration
}

type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request latency on m and serves handler at /metrics when it is non-nil.
func WithMetrics(m metrics.Manager, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsHandler = handler
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

type user struct {
	id       string
	email    string
	password string
}

type Server struct {
	cfg            Config
	logger         logging.Logger
	metrics        metrics.Manager
	metricsHandler http.Handler
	now            func() time.Time

	mu       sync.RWMutex
	users    map[string]*user // by email
	refresh  map[string]string
	entries  map[int]*journal.Entry
	owners   map[int]string
	profiles map[string]*journal.Profile
	nextID   int
}

func New(cfg Config, opts ...Option) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	s := &Server{
		cfg:      cfg,
		now:      time.Now,
		users:    make(map[string]*user),
		refresh:  make(map[string]string),
		entries:  make(map[int]*journal.Entry),
		owners:   make(map[int]string),
		profiles: make(map[string]*journal.Profile),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil {
		s.metrics.NewHistogram(responseMetric, "Response time of dev server requests in seconds.",
			.001, .003, .005, .01, .02, .03, .05, .1, .2, .3, .5, .75, 1, 2, 3, 5, 10, 30)
	}

	return s
}

// Router returns the HTTP handler serving every route.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().StrictSlash(false)
	r.Use(s.logging, s.recordMetrics)

	add := func(method, pattern string, h http.HandlerFunc, auth bool) {
		var handler http.Handler = h
		if auth {
			handler = s.authenticate(handler)
		}

		r.NewRoute().Methods(method).Path(pattern).Handler(otelhttp.NewHandler(handler, "eunoia-devserver"))
	}

	add(http.MethodGet, "/health", s.health, false)
	add(http.MethodGet, "/ready", s.ready, false)
	add(http.MethodPost, "/auth/v1/token", s.token, false)

	add(http.MethodPost, "/entries/", s.createEntry, true)
	add(http.MethodGet, "/entries/", s.listEntries, true)
	add(http.MethodGet, "/entries/{id:[0-9]+}", s.getEntry, true)
	add(http.MethodPut, "/entries/{id:[0-9]+}", s.updateEntry, true)
	add(http.MethodDelete, "/entries/{id:[0-9]+}", s.deleteEntry, true)

	add(http.MethodGet, "/analytics/sentiment-trends", s.sentimentTrends, true)
	add(http.MethodGet, "/analytics/insights", s.insights, true)
	add(http.MethodGet, "/analytics/stats", s.stats, true)

	add(http.MethodGet, "/profile", s.getProfile, true)
	add(http.MethodPut, "/profile", s.updateProfile, true)

	if s.metricsHandler != nil {
		r.NewRoute().Methods(http.MethodGet).Path("/metrics").Handler(s.metricsHandler)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, journal.Health{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

func (s *Server) ready(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeInvalid answers 422 with a validation detail list.
func writeInvalid(w http.ResponseWriter, location, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{
		"detail": {{Loc: []string{location, field}, Msg: msg, Type: "value_error"}},
	})
}
