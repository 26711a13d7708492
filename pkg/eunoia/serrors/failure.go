package serrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// HTTPFailure is a response that arrived with a non-2xx status.
type HTTPFailure struct {
	Status int
	Method string
	URL    string
	Body   []byte
}

func (f *HTTPFailure) Error() string {
	if detail := f.Detail(); detail != "" {
		return fmt.Sprintf("HTTP %d: %s", f.Status, detail)
	}

	return fmt.Sprintf("HTTP %d error", f.Status)
}

// Detail returns the server-supplied "detail" field of the body, or "" when the body carries none.
func (f *HTTPFailure) Detail() string {
	if len(f.Body) == 0 {
		return ""
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(f.Body, &body); err != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	// validation errors carry a list or an object; keep it as compact JSON.
	return strings.TrimSpace(string(body.Detail))
}

// NetworkFailure means no response was received.
type NetworkFailure struct {
	Cause error
}

func (f *NetworkFailure) Error() string {
	if f.Cause == nil {
		return "network error"
	}

	return "network error: " + f.Cause.Error()
}

func (f *NetworkFailure) Unwrap() error {
	return f.Cause
}

// Timeout reports whether the request was abandoned because a deadline passed.
func (f *NetworkFailure) Timeout() bool {
	if errors.Is(f.Cause, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(f.Cause, &netErr) && netErr.Timeout()
}

// LocalFailure is raised on the client before anything was sent, e.g. a body that cannot be encoded.
type LocalFailure struct {
	Cause error
}

func (f *LocalFailure) Error() string {
	if f.Cause == nil {
		return "request setup failed"
	}

	return "request setup failed: " + f.Cause.Error()
}

func (f *LocalFailure) Unwrap() error {
	return f.Cause
}
