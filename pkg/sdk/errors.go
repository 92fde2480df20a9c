package voicegate

import (
	"fmt"
	"net/http"

	"github.com/kailas-cloud/voicegate/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrUpstream        = domain.ErrUpstream
	ErrUpstreamNonJSON = domain.ErrUpstreamNonJSON
	ErrUpstreamTimeout = domain.ErrUpstreamTimeout
)

// upstreamTimeoutDetail is the detail the token endpoint reports when the
// realtime API did not answer in time.
const upstreamTimeoutDetail = "Upstream timeout"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	// Message is the "error" field of the response envelope.
	Message string
	// Detail is the "detail" field, or the raw upstream body for non-JSON upstream replies.
	Detail string
	// UpstreamStatus is set when the realtime API rejected session creation.
	UpstreamStatus int

	raw []byte
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("voicegate: %d %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("voicegate: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the response to a domain sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrInvalidArgument
	case http.StatusInternalServerError:
		if e.Detail == upstreamTimeoutDetail {
			return ErrUpstreamTimeout
		}
	case http.StatusBadGateway:
		if e.UpstreamStatus == 0 {
			return ErrUpstreamNonJSON
		}
		return ErrUpstream
	}
	return nil
}

type errorEnvelope struct {
	Error    string `json:"error"`
	Detail   string `json:"detail"`
	Body     string `json:"body"`
	UpStatus int    `json:"upStatus"`
}
