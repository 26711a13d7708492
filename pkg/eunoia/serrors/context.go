package serrors

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Context describes where and when a failure happened.
type Context struct {
	RequestID      string         `json:"request_id"`
	Timestamp      time.Time      `json:"timestamp"`
	UserID         string         `json:"user_id,omitempty"`
	Component      string         `json:"component,omitempty"`
	Action         string         `json:"action,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// NewContext returns a context stamped with the current time and a fresh request id.
func NewContext(component, action string) Context {
	now := time.Now()

	return Context{
		RequestID: newRequestID(now),
		Timestamp: now,
		Component: component,
		Action:    action,
	}
}

// newRequestID combines the creation time with a random uuid, e.g. "err_1712345678901_3f0c...".
func newRequestID(now time.Time) string {
	return fmt.Sprintf("err_%d_%s", now.UnixMilli(), uuid.NewString())
}

// filled returns a copy of c with a request id and timestamp, and its own AdditionalData map.
func (c Context) filled(now time.Time) Context {
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}

	if c.RequestID == "" {
		c.RequestID = newRequestID(c.Timestamp)
	}

	if c.AdditionalData != nil {
		c.AdditionalData = maps.Clone(c.AdditionalData)
	}

	return c
}
