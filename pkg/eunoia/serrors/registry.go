package serrors

import "errors"

var errUnknownCode = errors.New("unknown error code")

type registryEntry struct {
	code        Code
	name        string
	userMessage string
	retryable   bool
}

// registry holds one entry per Code, in declaration order. The array is unkeyed and its length is
// checked against codeCount below, so adding a Code without an entry (or the reverse) does not compile.
//
//nolint:gochecknoglobals // static lookup table
var registry = [...]registryEntry{
	{Network, "network", "Unable to connect. Please check your internet connection and try again.", true},
	{Timeout, "timeout", "The request took too long. Please try again.", true},
	{Unauthorized, "unauthorized", "Please log in to continue.", false},
	{Forbidden, "forbidden", "You don't have permission to perform this action.", false},
	{NotFound, "not-found", "The requested item could not be found.", false},
	{ServerError, "server-error", "Something went wrong on our end. Please try again later.", true},
	{RateLimited, "rate-limited", "Too many requests. Please wait a moment and try again.", true},
	{ServiceUnavailable, "service-unavailable", "The service is temporarily unavailable. Please try again shortly.", true},
	{Conflict, "conflict", "This item was changed elsewhere. Please refresh and try again.", false},

	{Validation, "validation", "Please check your input and try again.", false},
	{MissingField, "missing-field", "Please fill in all required fields.", false},
	{InvalidFormat, "invalid-format", "Some of the information entered is not in the right format.", false},

	{AuthTokenMissing, "auth-token-missing", "Please log in to continue.", false},
	{AuthTokenExpired, "auth-token-expired", "Your session has expired. Please log in again.", false},
	{AuthTokenInvalid, "auth-token-invalid", "Your session is no longer valid. Please log in again.", false},
	{AuthLoginFailed, "auth-login-failed", "Login failed. Please check your email and password.", false},
	{AuthSignupFailed, "auth-signup-failed", "We couldn't create your account. Please try again.", false},
	{AuthInsufficientPermissions, "auth-insufficient-permissions", "Your account doesn't have access to this feature.", false},

	{DataLoad, "data-load", "We couldn't load your data. Please try again.", true},
	{DataSave, "data-save", "We couldn't save your changes. Please try again.", false},
	{DataDelete, "data-delete", "We couldn't delete this item. Please try again.", false},
	{DataNotFound, "data-not-found", "The journal entry you're looking for doesn't exist.", false},

	{MLAnalysis, "ml-analysis", "AI analysis is temporarily unavailable. Your entry has been saved.", false},
	{MLUnavailable, "ml-unavailable", "AI insights are currently unavailable. Please try again later.", true},
	{MLModelLoad, "ml-model-load", "AI analysis is starting up. Your entry has been saved.", false},

	{Unknown, "unknown", "An unexpected error occurred. Please try again.", false},
	{Configuration, "configuration", "The application is not configured correctly. Please contact support.", false},
}

// Compile-time exhaustiveness: both fail to compile when len(registry) != codeCount.
var (
	_ [len(registry) - int(codeCount)]struct{}
	_ [int(codeCount) - len(registry)]struct{}
)
