package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eunoia.dev/pkg/eunoia/journal"
	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/metrics"
	"eunoia.dev/pkg/eunoia/serrors"
	"eunoia.dev/pkg/eunoia/service"
	"eunoia.dev/pkg/eunoia/session"
)

const anonKey = "anon-key"

var start = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type hits struct {
	mu     sync.Mutex
	byPath map[string]int
}

func (h *hits) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.byPath[path]
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *clock, *hits) {
	t.Helper()

	c := &clock{now: start}
	h := &hits{byPath: map[string]int{}}

	opts = append([]Option{WithClock(c.Now), WithLogger(logging.NewMockLogger(logging.DEBUG))}, opts...)
	router := New(Config{Secret: "test-secret", AnonKey: anonKey}, opts...).Router()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.byPath[r.URL.Path]++
		h.mu.Unlock()

		router.ServeHTTP(w, r)
	}))

	t.Cleanup(server.Close)

	return server, c, h
}

func call(t *testing.T, method, target, token, body string, header map[string]string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, target, strings.NewReader(body))
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	_ = json.Unmarshal(raw, &out)

	return resp.StatusCode, out
}

func signIn(t *testing.T, server *httptest.Server, email string) *session.Session {
	t.Helper()

	s, err := session.NewSupabaseRefresher(server.URL, anonKey, server.Client()).SignIn(context.Background(), email, "secret")
	require.NoError(t, err)

	return s
}

func newJournal(t *testing.T, server *httptest.Server, c *clock, s *session.Session) (*journal.API, *session.Manager) {
	t.Helper()

	logger := logging.NewMockLogger(logging.DEBUG)
	manager := session.NewManager(session.NewMemoryStore(),
		session.NewSupabaseRefresher(server.URL, anonKey, server.Client()), logger)

	require.NoError(t, manager.SignIn(context.Background(), s))

	client := service.NewClient(service.NewHTTPService(server.URL, nil, nil), manager, serrors.NewService(nil, nil),
		service.WithClock(c.Now), service.WithLogger(logger))

	return journal.New(client, nil), manager
}

func TestServer_TokenGrants(t *testing.T) {
	server, _, _ := newTestServer(t)
	first := signIn(t, server, "ada@example.com")

	tests := []struct {
		desc   string
		query  string
		body   string
		apikey string
		status int
		errKey string
	}{
		{"password sign in", "password", `{"email":"ada@example.com","password":"secret"}`, anonKey, http.StatusOK, ""},
		{"wrong password", "password", `{"email":"ada@example.com","password":"nope"}`, anonKey,
			http.StatusBadRequest, "invalid_grant"},
		{"missing password", "password", `{"email":"ada@example.com"}`, anonKey, http.StatusBadRequest, "invalid_request"},
		{"refresh token", "refresh_token", `{"refresh_token":"` + first.RefreshToken + `"}`, anonKey, http.StatusOK, ""},
		{"refresh token is single use", "refresh_token", `{"refresh_token":"` + first.RefreshToken + `"}`, anonKey,
			http.StatusBadRequest, "invalid_grant"},
		{"unknown grant", "client_credentials", `{}`, anonKey, http.StatusBadRequest, "unsupported_grant_type"},
		{"missing api key", "password", `{"email":"ada@example.com","password":"secret"}`, "", http.StatusUnauthorized, ""},
	}

	for i, tc := range tests {
		status, body := call(t, http.MethodPost, server.URL+"/auth/v1/token?grant_type="+tc.query, "", tc.body,
			map[string]string{"apikey": tc.apikey, "Content-Type": "application/json"})

		assert.Equalf(t, tc.status, status, "TEST[%d], Failed.\n%s", i, tc.desc)

		if tc.errKey != "" {
			assert.Equalf(t, tc.errKey, body["error"], "TEST[%d], Failed.\n%s", i, tc.desc)
		}

		if tc.status == http.StatusOK {
			assert.NotEmptyf(t, body["access_token"], "TEST[%d], Failed.\n%s", i, tc.desc)
		}
	}
}

func TestServer_FormGrant(t *testing.T) {
	server, _, _ := newTestServer(t)
	s := signIn(t, server, "ada@example.com")

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {s.RefreshToken}}

	status, body := call(t, http.MethodPost, server.URL+"/auth/v1/token", "", form.Encode(),
		map[string]string{"apikey": anonKey, "Content-Type": "application/x-www-form-urlencoded"})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bearer", body["token_type"])
}

func TestServer_Authentication(t *testing.T) {
	server, c, _ := newTestServer(t)
	token := signIn(t, server, "ada@example.com").AccessToken

	tests := []struct {
		desc   string
		header string
		detail string
	}{
		{"no header", "", "Authorization header required"},
		{"not a bearer token", "Token " + token, "Invalid authorization header format"},
		{"garbage token", "Bearer not-a-jwt", "Invalid or expired token"},
	}

	for i, tc := range tests {
		status, body := call(t, http.MethodGet, server.URL+"/entries/", "", "", map[string]string{"Authorization": tc.header})

		assert.Equalf(t, http.StatusUnauthorized, status, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.detail, body["detail"], "TEST[%d], Failed.\n%s", i, tc.desc)
	}

	status, _ := call(t, http.MethodGet, server.URL+"/entries/", token, "", nil)
	assert.Equal(t, http.StatusOK, status)

	c.Advance(2 * time.Hour)

	status, body := call(t, http.MethodGet, server.URL+"/entries/", token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["detail"])
}

func TestServer_EntryLifecycle(t *testing.T) {
	server, c, _ := newTestServer(t)
	api, _ := newJournal(t, server, c, signIn(t, server, "ada@example.com"))
	ctx := context.Background()

	created, err := api.CreateEntry(ctx, journal.NewEntry{Content: "  Finished the   project, so happy and proud  "})
	require.NoError(t, err)

	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "Finished the project, so happy and proud", created.Content)
	assert.Equal(t, "joy", created.Emotion)
	assert.Equal(t, "positive", created.EmotionGroup)
	require.NotNil(t, created.WordCount)
	assert.Equal(t, 7, *created.WordCount)

	got, err := api.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Content, got.Content)

	content := "Deadline stress, feeling anxious"
	updated, err := api.UpdateEntry(ctx, created.ID, journal.EntryUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "fear", updated.Emotion)
	assert.Equal(t, "negative", updated.EmotionGroup)

	require.NoError(t, api.DeleteEntry(ctx, created.ID))

	_, err = api.GetEntry(ctx, created.ID)

	var rec *serrors.Record

	require.ErrorAs(t, err, &rec)
	assert.Equal(t, serrors.DataNotFound, rec.Code())
	assert.Equal(t, "Entry not found", rec.Detail())
}

func TestServer_EntriesAreScopedToOwner(t *testing.T) {
	server, c, _ := newTestServer(t)
	ctx := context.Background()

	ada, _ := newJournal(t, server, c, signIn(t, server, "ada@example.com"))
	bob, _ := newJournal(t, server, c, signIn(t, server, "bob@example.com"))

	e, err := ada.CreateEntry(ctx, journal.NewEntry{Content: "private"})
	require.NoError(t, err)

	_, err = bob.GetEntry(ctx, e.ID)
	require.Error(t, err)

	page, err := bob.ListEntries(ctx, journal.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestServer_ExpiredTokenRefreshesAndRetries(t *testing.T) {
	server, c, h := newTestServer(t)
	api, manager := newJournal(t, server, c, signIn(t, server, "ada@example.com"))
	ctx := context.Background()

	_, err := api.CreateEntry(ctx, journal.NewEntry{Content: "a good day"})
	require.NoError(t, err)

	c.Advance(2 * time.Hour)

	page, err := api.ListEntries(ctx, journal.ListOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 3, h.count("/entries/"), "create, stale list and one retry")
	assert.Equal(t, 2, h.count("/auth/v1/token"), "sign in plus one refresh")

	s, err := manager.GetSession(ctx)
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.After(c.Now()))
}

func TestServer_ListPagination(t *testing.T) {
	server, c, _ := newTestServer(t)
	token := signIn(t, server, "ada@example.com").AccessToken

	for _, content := range []string{"happy start", "sad middle", "happy end"} {
		c.Advance(time.Minute)

		status, _ := call(t, http.MethodPost, server.URL+"/entries/", token, `{"content":"`+content+`"}`, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	tests := []struct {
		desc    string
		query   string
		status  int
		total   float64
		first   string
		hasNext bool
		hasPrev bool
	}{
		{"defaults newest first", "", http.StatusOK, 3, "happy end", false, false},
		{"second page", "?per_page=2&page=2", http.StatusOK, 3, "happy start", false, true},
		{"first page of two", "?per_page=2", http.StatusOK, 3, "happy end", true, false},
		{"oldest first", "?sort_order=asc", http.StatusOK, 3, "happy start", false, false},
		{"search", "?search=SAD", http.StatusOK, 1, "sad middle", false, false},
		{"emotion group", "?emotion_group=negative", http.StatusOK, 1, "sad middle", false, false},
		{"per page too large", "?per_page=101", http.StatusUnprocessableEntity, 0, "", false, false},
		{"page zero", "?page=0", http.StatusUnprocessableEntity, 0, "", false, false},
	}

	for i, tc := range tests {
		status, body := call(t, http.MethodGet, server.URL+"/entries/"+tc.query, token, "", nil)

		require.Equalf(t, tc.status, status, "TEST[%d], Failed.\n%s", i, tc.desc)

		if status != http.StatusOK {
			continue
		}

		entries, _ := body["entries"].([]any)
		require.NotEmptyf(t, entries, "TEST[%d], Failed.\n%s", i, tc.desc)

		assert.Equalf(t, tc.total, body["total"], "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.first, entries[0].(map[string]any)["content"], "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.hasNext, body["has_next"], "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.hasPrev, body["has_prev"], "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestServer_Analytics(t *testing.T) {
	server, c, _ := newTestServer(t)
	api, _ := newJournal(t, server, c, signIn(t, server, "ada@example.com"))
	ctx := context.Background()

	empty, err := api.Insights(ctx, 0)
	require.NoError(t, err)
	assert.False(t, empty.DataAvailable)

	for _, content := range []string{"happy and grateful", "great fun day", "tired and sad"} {
		_, err = api.CreateEntry(ctx, journal.NewEntry{Content: content})
		require.NoError(t, err)
	}

	trends, err := api.SentimentTrends(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, trends.DaysAnalyzed)
	assert.Equal(t, 3, trends.TotalEntries)
	require.Len(t, trends.Trends, 1)
	assert.Equal(t, "2026-05-01", trends.Trends[0].Date)

	insights, err := api.Insights(ctx, 7)
	require.NoError(t, err)
	assert.True(t, insights.DataAvailable)
	assert.Equal(t, "positive", insights.Patterns["emotion_dominance"])
	assert.Equal(t, "brief", insights.Patterns["writing_style"])
	require.NotNil(t, insights.Statistics)
	assert.Equal(t, 3, insights.Statistics.EntryCount)

	stats, err := api.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 3, stats.SentimentStats.Count)
	assert.Equal(t, 9, stats.WritingStats.TotalWords)
	assert.Equal(t, 2, stats.EmotionGroupDistribution["positive"])
}

func TestServer_ProfileAndHealth(t *testing.T) {
	server, c, _ := newTestServer(t)
	api, _ := newJournal(t, server, c, signIn(t, server, "ada@example.com"))
	ctx := context.Background()

	p, err := api.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "ada", p.DisplayName)

	name := "Ada L."
	p, err = api.UpdateProfile(ctx, journal.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, p.DisplayName)

	h, err := api.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "1.0.0", h.Version)
}

func TestServer_ServesMetrics(t *testing.T) {
	exporter := metrics.NewExporter("eunoia-devserver-test", logging.NewMockLogger(logging.INFO))
	server, _, _ := newTestServer(t, WithMetrics(exporter, exporter.Handler()))

	status, _ := call(t, http.MethodGet, server.URL+"/health", "", "", nil)
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/metrics", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `app_http_response_count{method="GET",path="/health",status="200"} 1`)
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	status, body := call(t, http.MethodGet, server.URL+"/nope", "", "", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body["detail"])
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		content string
		emotion string
		group   string
		above   bool
	}{
		{"I am so happy and proud today", "joy", "positive", true},
		{"Lonely and sad evening", "sadness", "negative", false},
		{"Frustrated, angry, annoyed", "anger", "negative", false},
		{"Went to the store", "neutral", "neutral", false},
	}

	for i, tc := range tests {
		e := &journal.Entry{Content: tc.content}
		analyze(e)

		assert.Equalf(t, tc.emotion, e.Emotion, "TEST[%d], Failed.\n%s", i, tc.content)
		assert.Equalf(t, tc.group, e.EmotionGroup, "TEST[%d], Failed.\n%s", i, tc.content)
		assert.Equalf(t, tc.above, *e.SentimentScore > 5, "TEST[%d], Failed.\n%s", i, tc.content)
		assert.NotEmptyf(t, e.EmotionsDetected, "TEST[%d], Failed.\n%s", i, tc.content)
	}
}
