package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/serrors"
)

type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string][][]string
	histograms map[string][][]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   make(map[string][][]string),
		histograms: make(map[string][][]string),
	}
}

func (m *recordingMetrics) IncrementCounter(_ context.Context, name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name] = append(m.counters[name], labels)
}

func (m *recordingMetrics) RecordHistogram(_ context.Context, name string, _ float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histograms[name] = append(m.histograms[name], labels)
}

func (m *recordingMetrics) counter(name string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counters[name]
}

func TestHTTPService_SendSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/entries/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"content":"hello"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"entry-1"}`)
	}))
	defer server.Close()

	logger := logging.NewMockLogger(logging.DEBUG)
	metrics := newRecordingMetrics()

	svc := NewHTTPService(server.URL+"/", logger, metrics)

	res := svc.Send(context.Background(), Request{
		Method:  http.MethodPost,
		Path:    "/entries/",
		Query:   url.Values{"page": {"2"}},
		Body:    []byte(`{"content":"hello"}`),
		Headers: map[string]string{"Authorization": "Bearer token"},
	})

	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, `{"id":"entry-1"}`, string(res.Body))

	assert.Len(t, logger.Entries(), 1)
	assert.Equal(t, [][]string{{"path", server.URL, "method", "POST", "status", "201"}},
		metrics.histograms[responseHistogram])
}

func TestHTTPService_SendHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Entry not found"}`)
	}))
	defer server.Close()

	res := NewHTTPService(server.URL, nil, nil).Send(context.Background(),
		Request{Method: http.MethodGet, Path: "entries/42"})

	var httpErr *serrors.HTTPFailure

	require.ErrorAs(t, res.Err, &httpErr)
	assert.False(t, res.OK())
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, http.MethodGet, httpErr.Method)
	assert.Equal(t, server.URL+"/entries/42", httpErr.URL)
	assert.Equal(t, "Entry not found", httpErr.Detail())
}

func TestHTTPService_SendTransportFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closed.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		desc    string
		address string
		ctx     func() (context.Context, context.CancelFunc)
		method  string
		network bool
		timeout bool
	}{
		{"server unreachable", closed.URL, background, http.MethodGet, true, false},
		{"deadline passes", slow.URL, func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}, http.MethodGet, true, true},
		{"caller cancels", slow.URL, func() (context.Context, context.CancelFunc) {
			return cancelled, func() {}
		}, http.MethodGet, false, false},
		{"invalid method", slow.URL, background, "BAD METHOD", false, false},
	}

	for i, tc := range tests {
		ctx, done := tc.ctx()
		logger := logging.NewMockLogger(logging.DEBUG)

		res := NewHTTPService(tc.address, logger, nil).Send(ctx, Request{Method: tc.method, Path: "entries/"})

		done()

		var (
			netErr   *serrors.NetworkFailure
			localErr *serrors.LocalFailure
		)

		assert.Zerof(t, res.Status, "TEST[%d], Failed.\n%s", i, tc.desc)

		if tc.network {
			require.ErrorAsf(t, res.Err, &netErr, "TEST[%d], Failed.\n%s", i, tc.desc)
			assert.Equalf(t, tc.timeout, netErr.Timeout(), "TEST[%d], Failed.\n%s", i, tc.desc)

			continue
		}

		require.ErrorAsf(t, res.Err, &localErr, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func background() (context.Context, context.CancelFunc) {
	return context.Background(), func() {}
}

func TestHTTPService_InjectsTraceParent(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	defer otel.SetTextMapPropagator(previous)

	var traceparent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil, nil).(*httpService)
	svc.Tracer = sdktrace.NewTracerProvider().Tracer("test")

	res := svc.Send(context.Background(), Request{Method: http.MethodDelete, Path: "entries/1"})

	require.NoError(t, res.Err)
	assert.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`, traceparent)
}

func TestDefaultHeaders(t *testing.T) {
	var got http.Header

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil, nil, &DefaultHeaders{Headers: map[string]string{
		"apikey":       "anon-key",
		"X-Client":     "cli",
		"X-Overridden": "default",
	}})

	res := svc.Send(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "profile",
		Headers: map[string]string{"X-Overridden": "request"},
	})

	require.NoError(t, res.Err)
	assert.Equal(t, "anon-key", got.Get("apikey"))
	assert.Equal(t, "cli", got.Get("X-Client"))
	assert.Equal(t, "request", got.Get("X-Overridden"))
}

func TestWithCustomClient(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}

	svc := NewHTTPService("http://localhost", nil, nil,
		&DefaultHeaders{Headers: map[string]string{"a": "b"}}, &WithCustomClient{Client: custom})

	assert.Same(t, custom, extractHTTPService(svc).Client)
}

func TestRequest_HeadersAreCopied(t *testing.T) {
	orig := Request{Headers: map[string]string{"X-Trace": "1", "Authorization": "Bearer old"}}

	withNew := orig.WithBearer("new")
	without := orig.WithBearer("")

	assert.Equal(t, "Bearer old", orig.Headers["Authorization"])
	assert.Equal(t, "Bearer new", withNew.Headers["Authorization"])
	assert.NotContains(t, without.Headers, "Authorization")
	assert.Equal(t, "1", without.Headers["X-Trace"])
}

func TestResult_Unauthorized(t *testing.T) {
	res := httpFailure(Request{Method: http.MethodGet}, "http://x/entries/", http.StatusUnauthorized, nil, nil)

	assert.True(t, res.Unauthorized())
	assert.False(t, res.OK())
	assert.False(t, networkFailure(errors.New("reset")).Unauthorized())
}
