package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eunoia.dev/pkg/eunoia/config"
	"eunoia.dev/pkg/eunoia/logging"
)

func TestNewServer(t *testing.T) {
	tests := []struct {
		desc    string
		env     map[string]string
		addr    string
		wantErr bool
	}{
		{"defaults", map[string]string{"JWT_SECRET": "s"}, "localhost:8000", false},
		{"custom address", map[string]string{"JWT_SECRET": "s", "DEVSERVER_ADDR": ":9001", "TOKEN_TTL": "10m"}, ":9001", false},
		{"missing secret", map[string]string{}, "", true},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "soon"}, "", true},
		{"negative ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "-1m"}, "", true},
	}

	for i, tc := range tests {
		srv, err := newServer(config.NewMockConfig(tc.env), logging.NewMockLogger(logging.INFO))

		if tc.wantErr {
			assert.Errorf(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
			continue
		}

		require.NoErrorf(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.addr, srv.Addr, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestNewServer_ServesHealthAndMetrics(t *testing.T) {
	srv, err := newServer(config.NewMockConfig(map[string]string{"JWT_SECRET": "s"}), logging.NewMockLogger(logging.INFO))
	require.NoError(t, err)

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)

		srv.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv, err := newServer(config.NewMockConfig(map[string]string{"JWT_SECRET": "s", "DEVSERVER_ADDR": "127.0.0.1:0"}),
		logging.NewMockLogger(logging.INFO))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- serve(ctx, srv, logging.NewMockLogger(logging.INFO)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
