package service

import (
	"maps"
	"net/http"
	"net/url"

	"eunoia.dev/pkg/eunoia/serrors"
)

// Request is one outbound call, described independently of any transport so it can be replayed.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers map[string]string

	// Attempt is 0 for the first dispatch and 1 for the single retry after a refresh.
	Attempt int
}

// WithHeader returns a copy of r with key set to value. r itself is not modified.
func (r Request) WithHeader(key, value string) Request {
	headers := make(map[string]string, len(r.Headers)+1)
	maps.Copy(headers, r.Headers)
	headers[key] = value

	r.Headers = headers

	return r
}

// WithBearer returns a copy of r authorized with token. An empty token removes the Authorization header.
func (r Request) WithBearer(token string) Request {
	if token == "" {
		headers := maps.Clone(r.Headers)
		delete(headers, "Authorization")
		r.Headers = headers

		return r
	}

	return r.WithHeader("Authorization", "Bearer "+token)
}

// Result is the outcome of one dispatch. Err is nil on a 2xx response; otherwise it is exactly one of
// *serrors.HTTPFailure, *serrors.NetworkFailure or *serrors.LocalFailure.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Unauthorized reports a 401 response.
func (r Result) Unauthorized() bool {
	return r.Status == http.StatusUnauthorized
}

func okResult(status int, header http.Header, body []byte) Result {
	return Result{Status: status, Header: header, Body: body}
}

func httpFailure(req Request, uri string, status int, header http.Header, body []byte) Result {
	return Result{
		Status: status,
		Header: header,
		Body:   body,
		Err:    &serrors.HTTPFailure{Status: status, Method: req.Method, URL: uri, Body: body},
	}
}

func networkFailure(err error) Result {
	return Result{Err: &serrors.NetworkFailure{Cause: err}}
}

func localFailure(err error) Result {
	return Result{Err: &serrors.LocalFailure{Cause: err}}
}
