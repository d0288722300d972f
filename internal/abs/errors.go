package abs

import (
	"errors"
	"fmt"
	"net/http"
)

// Static errors for Audiobookshelf client operations.
var (
	// ErrBaseURLRequired is returned when the server URL is not provided.
	ErrBaseURLRequired = errors.New("abs: server URL is required")
	// ErrAPIKeyNotSet is returned when no API key is configured and ABS_API_KEY is empty.
	ErrAPIKeyNotSet = errors.New("abs: ABS_API_KEY environment variable is not set")
	// ErrItemIDRequired is returned when a library item ID is not provided.
	ErrItemIDRequired = errors.New("abs: item ID is required")
	// ErrSessionIDRequired is returned when a play session ID is not provided.
	ErrSessionIDRequired = errors.New("abs: session ID is required")
	// ErrNotFound is the class of 404 responses.
	ErrNotFound = errors.New("abs: not found")
	// ErrServerError is the class of 5xx responses.
	ErrServerError = errors.New("abs: server error")
	// ErrRequestFailed is the class of every other non-2xx response.
	ErrRequestFailed = errors.New("abs: request failed")
)

// RemoteError is a non-2xx answer from the server.
type RemoteError struct {
	// Op names the client operation, e.g. "sync session".
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("abs: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("abs: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto one of ErrNotFound, ErrServerError or
// ErrRequestFailed so callers can use errors.Is.
func (e *RemoteError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode >= 500:
		return ErrServerError
	default:
		return ErrRequestFailed
	}
}

// Error classes reported by RemoteError.Class.
const (
	ClassNotFound = "not_found"
	ClassServer   = "server"
	ClassClient   = "client"
)

// Class returns the classification of the status code for logging.
func (e *RemoteError) Class() string {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ClassNotFound
	case e.StatusCode >= 500:
		return ClassServer
	default:
		return ClassClient
	}
}

// ErrorClass returns the class of err, or "transport" when err is not a
// RemoteError (no answer from the server at all).
func ErrorClass(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Class()
	}
	return "transport"
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsServerError reports whether err is a 5xx from the server.
func IsServerError(err error) bool {
	return errors.Is(err, ErrServerError)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a RemoteError.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
