package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share a limit.
type EndpointClass string

const (
	// ClassUpload covers routes that call external providers or write customers.
	ClassUpload EndpointClass = "upload"
	// ClassRead covers session status lookups.
	ClassRead EndpointClass = "read"
)

// Limit is the number of requests allowed per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the API response when a limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// SanitizeKeySegment escapes the key delimiter so a caller-controlled value
// cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Key builds the bucket key for a class and client identity.
func Key(class EndpointClass, kind, identity string) string {
	return string(class) + ":" + kind + ":" + SanitizeKeySegment(identity)
}
