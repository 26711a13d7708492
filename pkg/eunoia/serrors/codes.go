package serrors

import (
	"fmt"
	"strings"
)

// Code identifies a class of failure. The set of codes is closed.
type Code int

// Network and transport.
const (
	Network Code = iota
	Timeout
	Unauthorized
	Forbidden
	NotFound
	ServerError
	RateLimited
	ServiceUnavailable
	Conflict

	// Validation.
	Validation
	MissingField
	InvalidFormat

	// Authentication.
	AuthTokenMissing
	AuthTokenExpired
	AuthTokenInvalid
	AuthLoginFailed
	AuthSignupFailed
	AuthInsufficientPermissions

	// Data.
	DataLoad
	DataSave
	DataDelete
	DataNotFound

	// ML analysis.
	MLAnalysis
	MLUnavailable
	MLModelLoad

	// Generic application.
	Unknown
	Configuration

	codeCount
)

// Codes returns every code in declaration order.
func Codes() []Code {
	codes := make([]Code, 0, codeCount)

	for c := Code(0); c < codeCount; c++ {
		codes = append(codes, c)
	}

	return codes
}

// Valid reports whether c is one of the declared codes.
func (c Code) Valid() bool {
	return c >= 0 && c < codeCount
}

func (c Code) String() string {
	if !c.Valid() {
		return fmt.Sprintf("code(%d)", int(c))
	}

	return registry[c].name
}

// UserMessage returns the static, user-facing sentence for c. Unknown codes get the unknown sentence.
func (c Code) UserMessage() string {
	if !c.Valid() {
		return registry[Unknown].userMessage
	}

	return registry[c].userMessage
}

// Retryable reports whether an operation failing with c may succeed when repeated.
func (c Code) Retryable() bool {
	return c.Valid() && registry[c].retryable
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	code, ok := ParseCode(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownCode, string(text))
	}

	*c = code

	return nil
}

// ParseCode returns the code with the given name, e.g. "auth-token-expired".
func ParseCode(name string) (Code, bool) {
	name = strings.ToLower(strings.TrimSpace(name))

	for i := range registry {
		if registry[i].name == name {
			return registry[i].code, true
		}
	}

	return Unknown, false
}
