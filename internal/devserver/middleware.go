package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"

	"eunoia.dev/pkg/eunoia/logging"
)

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestLog is logged once per served request.
type RequestLog struct {
	TraceID      string `json:"trace_id,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	ResponseTime int64  `json:"response_time,omitempty"`
	Method       string `json:"method,omitempty"`
	URI          string `json:"uri,omitempty"`
	Response     int    `json:"response,omitempty"`
}

func (rl *RequestLog) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%s \u001B[38;5;%dm%-6d\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %s %s \n",
		rl.TraceID, statusColor(rl.Response), rl.Response, rl.ResponseTime, rl.Method, rl.URI)
}

func statusColor(status int) int {
	switch {
	case status >= 200 && status < 300:
		return 34
	case status >= 400 && status < 500:
		return 220
	default:
		return 202
	}
}

func (s *Server) logging(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if re := recover(); re != nil {
				logging.LogPanic(re, s.logger)
				writeDetail(srw, http.StatusInternalServerError, "Internal Server Error")
			}

			if s.logger == nil {
				return
			}

			l := &RequestLog{
				TraceID:      trace.SpanFromContext(r.Context()).SpanContext().TraceID().String(),
				StartTime:    start.Format(time.RFC3339Nano),
				ResponseTime: time.Since(start).Microseconds(),
				Method:       r.Method,
				URI:          r.RequestURI,
				Response:     srw.status,
			}

			if srw.status >= http.StatusInternalServerError {
				s.logger.Error(l)
				return
			}

			s.logger.Log(l)
		}()

		inner.ServeHTTP(srw, r)
	})
}

func (s *Server) recordMetrics(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			inner.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		path, _ := mux.CurrentRoute(r).GetPathTemplate()

		inner.ServeHTTP(srw, r)

		s.metrics.RecordHistogram(r.Context(), responseMetric, time.Since(start).Seconds(),
			"path", strings.TrimSuffix(path, "/"), "method", r.Method, "status", strconv.Itoa(srw.status))
	})
}

type ctxKey struct{}

// authenticate admits requests carrying a valid, unexpired HS256 bearer token.
func (s *Server) authenticate(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		u, err := s.verify(raw)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		inner.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func (s *Server) verify(raw string) (*user, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}

	email, _ := claims["email"].(string)

	return &user{id: sub, email: email}, nil
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(ctxKey{}).(*user)

	return u
}
