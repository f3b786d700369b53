package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds returned by every request. Match them with errors.Is.
var (
	// ErrUnauthorized is returned for any 401 response. The Authenticator has
	// already been told to drop its credentials by the time the caller sees it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRequestFailed covers transport failures and every non-401 error status.
	ErrRequestFailed = errors.New("request failed")
)

// networkErrorMessage is shown when the server could not be reached.
const networkErrorMessage = "network error. please check your connection"

// badResponseMessage is shown when a successful response could not be used.
const badResponseMessage = "unexpected response from server"

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is maps the status code onto the exported error kinds.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRequestFailed:
		return e.StatusCode != http.StatusUnauthorized
	}
	return false
}

// NetworkError wraps a transport failure (DNS, refused connection, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return networkErrorMessage + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports NetworkError as ErrRequestFailed.
func (e *NetworkError) Is(target error) bool {
	return target == ErrRequestFailed
}

// ResponseError is a 2xx response whose body could not be used: not JSON, or
// missing a field the call needs. Proxies and captive portals produce these.
type ResponseError struct {
	Detail string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return badResponseMessage + ": " + e.Detail + ": " + e.Err.Error()
	}
	return badResponseMessage + ": " + e.Detail
}

func (e *ResponseError) Unwrap() error { return e.Err }

// Is reports ResponseError as ErrRequestFailed.
func (e *ResponseError) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Message returns the text to show a user for err: the server-provided
// message for HTTP errors, a generic message for transport errors and unusable
// responses, and err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return networkErrorMessage
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return badResponseMessage
	}
	return err.Error()
}
