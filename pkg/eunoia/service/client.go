package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"eunoia.dev/pkg/eunoia/serrors"
	"eunoia.dev/pkg/eunoia/session"
)

const (
	DefaultRefreshThreshold = 5 * time.Minute
	DefaultRequestTimeout   = 10 * time.Second

	refreshTotal      = "eunoia_session_refresh_total"
	forcedLogoutTotal = "eunoia_forced_logout_total"

	triggerProactive = "proactive"
	triggerReactive  = "reactive"
)

type ClientLogger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type ClientMetrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
}

// Client sends requests on behalf of the signed-in user. It attaches the session's access token,
// refreshes a token that is about to expire, and retries a request rejected with 401 exactly once
// after refreshing. When the retry is rejected too, or the refresh fails, the user is signed out.
//
// Every failure is returned as a *serrors.Record. A Client is safe for concurrent use.
type Client struct {
	http     HTTP
	provider session.Provider
	errs     *serrors.Service

	logger    ClientLogger
	metrics   ClientMetrics
	threshold time.Duration
	timeout   time.Duration
	component string
	now       func() time.Time

	mu       sync.RWMutex
	onLogout []func(*serrors.Record)
}

type ClientOption func(*Client)

// WithRefreshThreshold sets how close to expiry a token must be before it is refreshed ahead of a request.
func WithRefreshThreshold(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.threshold = d
		}
	}
}

// WithRequestTimeout bounds every single dispatch.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l ClientLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m ClientMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithComponent names the caller in the context of every record the client creates.
func WithComponent(name string) ClientOption {
	return func(c *Client) {
		c.component = name
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient returns a Client sending through transport. errs receives every failure; a nil errs gets a
// private classification service.
func NewClient(transport HTTP, provider session.Provider, errs *serrors.Service, opts ...ClientOption) *Client {
	if errs == nil {
		errs = serrors.NewService(nil, nil)
	}

	c := &Client{
		http:      transport,
		provider:  provider,
		errs:      errs,
		logger:    nopLogger{},
		threshold: DefaultRefreshThreshold,
		timeout:   DefaultRequestTimeout,
		component: "api-client",
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// OnLogout registers fn to be called with the unauthorized record whenever the client signs the user out.
func (c *Client) OnLogout(fn func(*serrors.Record)) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	c.onLogout = append(c.onLogout, fn)
	c.mu.Unlock()
}

// RecentErrors returns up to limit records, newest first.
func (c *Client) RecentErrors(limit int) []*serrors.Record {
	return c.errs.Recent(limit)
}

// Errors is the classification service the client reports to.
func (c *Client) Errors() *serrors.Service {
	return c.errs
}

// Request sends body to path and returns the response payload.
func (c *Client) Request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, Request{Method: method, Path: path, Body: body})
}

// Do sends req, refreshing and retrying once on a 401. The returned error is always a *serrors.Record.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	req.Attempt = 0
	req = req.WithBearer(c.token(ctx))

	res := c.dispatch(ctx, req)
	if !res.Unauthorized() {
		return c.settle(req, res)
	}

	token, ok := c.refresh(ctx, triggerReactive)
	if !ok {
		return nil, c.forceLogout(ctx, req, res)
	}

	retry := req.WithBearer(token)
	retry.Attempt = 1

	res = c.dispatch(ctx, retry)
	if res.Unauthorized() {
		return nil, c.forceLogout(ctx, retry, res)
	}

	return c.settle(retry, res)
}

// RequestJSON encodes in as the body (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) RequestJSON(ctx context.Context, method, path string, in, out any) error {
	return c.DoJSON(ctx, Request{Method: method, Path: path}, in, out)
}

func (c *Client) DoJSON(ctx context.Context, req Request, in, out any) error {
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return c.errs.Create(serrors.InvalidFormat, "Failed to encode request body",
				serrors.WithDetail(err.Error()), serrors.WithCause(err), serrors.WithContext(c.recordContext(req)))
		}

		req.Body = body
	}

	payload, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return c.errs.Create(serrors.DataLoad, "Failed to decode response",
			serrors.WithDetail(err.Error()), serrors.WithCause(err), serrors.WithContext(c.recordContext(req)))
	}

	return nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.RequestJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.RequestJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.RequestJSON(ctx, http.MethodDelete, path, nil, out)
}

// token picks the access token for a first dispatch. An empty string means no Authorization header.
func (c *Client) token(ctx context.Context) string {
	if c.provider == nil {
		return ""
	}

	s, err := c.provider.GetSession(ctx)
	if err != nil {
		c.logger.Warnf("reading session: %v", err)

		return ""
	}

	if !s.Valid() {
		return ""
	}

	// An expired token is sent as is; the 401 path refreshes it.
	remaining := s.Remaining(c.now())
	if remaining <= 0 || remaining >= c.threshold {
		return s.AccessToken
	}

	if fresh, ok := c.refresh(ctx, triggerProactive); ok {
		return fresh
	}

	return s.AccessToken
}

func (c *Client) refresh(ctx context.Context, trigger string) (string, bool) {
	if c.provider == nil {
		return "", false
	}

	s, err := c.provider.RefreshSession(ctx)

	ok := err == nil && s.Valid()

	outcome := "success"
	if !ok {
		outcome = "failure"
	}

	if c.metrics != nil {
		c.metrics.IncrementCounter(ctx, refreshTotal, "trigger", trigger, "outcome", outcome)
	}

	switch {
	case err != nil:
		c.logger.Warnf("%s session refresh failed: %v", trigger, err)
	case !ok:
		c.logger.Warnf("%s session refresh returned no access token", trigger)
	default:
		c.logger.Debugf("%s session refresh succeeded", trigger)
	}

	if !ok {
		return "", false
	}

	return s.AccessToken, true
}

func (c *Client) dispatch(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.http.Send(ctx, req)
}

func (c *Client) settle(req Request, res Result) ([]byte, error) {
	if res.OK() {
		return res.Body, nil
	}

	return nil, c.classify(req, res)
}

func (c *Client) classify(req Request, res Result) *serrors.Record {
	if errors.Is(res.Err, ErrRateLimited) {
		return c.errs.Create(serrors.RateLimited, "Request rejected by the local rate limiter",
			serrors.WithDetail(res.Err.Error()), serrors.WithCause(res.Err),
			serrors.WithContext(c.recordContext(req)))
	}

	return c.errs.ClassifyHTTPFailure(res.Err, c.recordContext(req))
}

func (c *Client) forceLogout(ctx context.Context, req Request, res Result) *serrors.Record {
	rec := c.classify(req, res)

	if c.provider != nil {
		if err := c.provider.SignOut(ctx); err != nil {
			c.logger.Errorf("signing out after unrecoverable 401: %v", err)
		}
	}

	if c.metrics != nil {
		c.metrics.IncrementCounter(ctx, forcedLogoutTotal)
	}

	c.mu.RLock()
	listeners := append([]func(*serrors.Record){}, c.onLogout...)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(rec)
	}

	return rec
}

func (c *Client) recordContext(req Request) serrors.Context {
	ctx := serrors.NewContext(c.component, req.Method+" "+req.Path)
	ctx.AdditionalData = map[string]any{"attempt": req.Attempt}

	return ctx
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
