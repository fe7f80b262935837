// Package sheets provides an HTTP client for the Google Sheets and Drive
// REST APIs with automatic retry, backoff, and error classification.
package sheets

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, sheets.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("sheets: bad request")
	ErrUnauthorized = errors.New("sheets: unauthorized")
	ErrForbidden    = errors.New("sheets: forbidden")
	ErrNotFound     = errors.New("sheets: not found")
	ErrConflict     = errors.New("sheets: conflict")
	ErrThrottled    = errors.New("sheets: rate limited")
	ErrServerError  = errors.New("sheets: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the API
// error message body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err represents a failure a caller may retry
// (rate limiting, server-side errors). The client never retries beyond its
// own backoff budget; the decision to re-invoke stays with the caller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrServerError)
}
