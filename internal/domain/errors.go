package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed or missing request parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstream signals a non-success response from the realtime session API.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamNonJSON signals that the realtime session API returned a body that is not JSON.
	ErrUpstreamNonJSON = errors.New("upstream returned non-JSON")
	// ErrUpstreamTimeout signals that the realtime session API did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrKnowledgeBase signals a missing or corrupt knowledge base file.
	ErrKnowledgeBase = errors.New("knowledge base unavailable")
)

// MaxUpstreamBody is the number of characters of an upstream body kept in error details.
const MaxUpstreamBody = 1024

// UpstreamError carries the upstream status and a truncated body.
type UpstreamError struct {
	Status int
	Body   string
	kind   error
}

// NewUpstreamStatusError wraps ErrUpstream with the upstream status and body.
func NewUpstreamStatusError(status int, body []byte) error {
	return &UpstreamError{Status: status, Body: Truncate(string(body), MaxUpstreamBody), kind: ErrUpstream}
}

// NewUpstreamNonJSONError wraps ErrUpstreamNonJSON with the offending body.
func NewUpstreamNonJSONError(status int, body []byte) error {
	return &UpstreamError{Status: status, Body: Truncate(string(body), MaxUpstreamBody), kind: ErrUpstreamNonJSON}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d", e.kind.Error(), e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.kind }

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
