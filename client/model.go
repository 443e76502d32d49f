package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// DefaultUserAgent is sent on every request unless [WithUserAgent] says otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.149 Safari/537.36"

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is reported alongside [ErrUnexpectedStatusCode] when the
	// server responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrRangeMismatch means a ranged download got a Content-Range that
	// does not start at the requested offset.
	ErrRangeMismatch = errors.New("content range mismatch")
)

// UnexpectedStatusError is returned when the HTTP response status code
// is not the one the operation accepts. Body holds at most 4KB of the
// response text.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", ErrUnexpectedStatusCode, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return []error{ErrUnexpectedStatusCode, ErrAuthFailure}
	}
	return []error{ErrUnexpectedStatusCode}
}

// Headers builds a header set from alternating key/value pairs.
// Duplicate keys accumulate in order. A trailing key without a value
// is added with an empty value.
func Headers(kv ...string) http.Header {
	h := make(http.Header, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		var v string
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		h.Add(kv[i], v)
	}
	return h
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
