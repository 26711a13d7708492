// Package service is the journal client's HTTP layer: a transport that turns each dispatch into one tagged Result,
// and the resilient Client on top of it that attaches session tokens and recovers from expired ones.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const responseHistogram = "app_http_service_response"

type httpService struct {
	*http.Client
	trace.Tracer
	url string
	Logger
	Metrics
}

// HTTP sends requests to one backend.
type HTTP interface {
	// Send dispatches req once. It never returns a Result with both a 2xx Status and an Err.
	Send(ctx context.Context, req Request) Result
	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) *Health
}

// NewHTTPService returns the transport for the backend at serviceAddress, wrapped by options in order.
// logger and metrics may be nil.
func NewHTTPService(serviceAddress string, logger Logger, metrics Metrics, options ...Options) HTTP {
	h := &httpService{
		Client:  &http.Client{},
		url:     strings.TrimRight(serviceAddress, "/"),
		Tracer:  otel.Tracer("eunoia-http-client"),
		Logger:  logger,
		Metrics: metrics,
	}

	var svc HTTP = h

	for _, o := range options {
		if o != nil {
			svc = o.AddOption(svc)
		}
	}

	return svc
}

func (h *httpService) Send(ctx context.Context, r Request) Result {
	uri := h.url + "/" + strings.TrimLeft(r.Path, "/")

	spanContext, span := h.Tracer.Start(ctx, r.Method+" "+uri, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	spanContext = httptrace.WithClientTrace(spanContext, otelhttptrace.NewClientTrace(spanContext))

	req, err := http.NewRequestWithContext(spanContext, r.Method, uri, bytes.NewReader(r.Body))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return localFailure(err)
	}

	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	if len(r.Query) > 0 {
		q := req.URL.Query()

		for k, values := range r.Query {
			for _, v := range values {
				q.Add(k, v)
			}
		}

		req.URL.RawQuery = q.Encode()
	}

	otel.GetTextMapPropagator().Inject(spanContext, propagation.HeaderCarrier(req.Header))

	log := &Log{
		Timestamp:     time.Now(),
		CorrelationID: span.SpanContext().TraceID().String(),
		HTTPMethod:    r.Method,
		URI:           uri,
		Attempt:       r.Attempt,
	}

	start := time.Now()

	resp, err := h.Do(req)
	if err != nil {
		return h.failed(ctx, span, log, start, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return h.failed(ctx, span, log, start, err)
	}

	log.ResponseTime = time.Since(start).Microseconds()
	log.ResponseCode = resp.StatusCode

	h.log(log)
	h.record(ctx, r.Method, resp.StatusCode, start)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return okResult(resp.StatusCode, resp.Header, body)
	}

	span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))

	return httpFailure(r, uri, resp.StatusCode, resp.Header, body)
}

// failed turns a transport error into a NetworkFailure, or a LocalFailure when the caller gave up first.
func (h *httpService) failed(ctx context.Context, span trace.Span, log *Log, start time.Time, err error) Result {
	log.ResponseTime = time.Since(start).Microseconds()
	log.ResponseCode = http.StatusInternalServerError

	h.log(&ErrorLog{Log: log, ErrorMessage: err.Error()})
	h.record(ctx, log.HTTPMethod, 0, start)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if errors.Is(err, context.Canceled) {
		return localFailure(err)
	}

	return networkFailure(err)
}

func (h *httpService) log(entry any) {
	if h.Logger != nil {
		h.Logger.Log(entry)
	}
}

func (h *httpService) record(ctx context.Context, method string, status int, start time.Time) {
	if h.Metrics == nil {
		return
	}

	h.Metrics.RecordHistogram(ctx, responseHistogram, time.Since(start).Seconds(),
		"path", h.url, "method", method, "status", strconv.Itoa(status))
}
