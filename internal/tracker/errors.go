package tracker

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// TransportError reports a request that never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }

// Retryable reports whether the status is worth retrying.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// DecodeError reports a response body that does not match the expected schema.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShouldRetry reports whether err is a transient failure: a transport error
// or a 429/5xx response. Decode errors and other statuses are permanent.
func ShouldRetry(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return true
	}
	var status *HTTPStatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	return false
}

// ShouldRetryCreate is the retry predicate for non-idempotent calls. It only
// accepts failures where the server cannot have acted on the request: a
// connection that was never established, or a 429 response.
func ShouldRetryCreate(err error) bool {
	var status *HTTPStatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests
	}
	var transport *TransportError
	if !errors.As(err, &transport) {
		return false
	}
	var op *net.OpError
	return errors.As(transport.Err, &op) && op.Op == "dial"
}

const maxMessageLen = 256

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "error", "errors.0.message", "detail"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
				return truncate(r.Str)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
