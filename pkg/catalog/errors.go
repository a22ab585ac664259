package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrorClass represents a classification of lookup errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// ClassForStatus classifies a non-2xx status code.
func ClassForStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// ClassOf returns the class of a lookup error, or "" when err is not one.
func ClassOf(err error) ErrorClass {
	var (
		apiErr     *APIError
		limitErr   *RateLimitExceededError
		networkErr *NetworkError
		decodeErr  *DecodeError
	)
	switch {
	case errors.As(err, &limitErr):
		return ErrorClassRateLimit
	case errors.As(err, &apiErr):
		return apiErr.ErrorClass
	case errors.As(err, &networkErr):
		return ErrorClassNetwork
	case errors.As(err, &decodeErr):
		return ErrorClassDecode
	default:
		return ""
	}
}

// APIError is a non-2xx, non-429 catalog response.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
}

// RateLimitExceededError is returned when the catalog kept answering 429
// after every allowed retry.
type RateLimitExceededError struct {
	// Attempts is the number of calls made, including the first one.
	Attempts int

	// RetryAfter is the delay the catalog asked for on the last response.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("TMDB rate limit exceeded after %d attempts (retry after %v)", e.Attempts, e.RetryAfter)
}

// NetworkError wraps a transport failure. The wrapped error never contains
// the API key.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("TMDB network error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError wraps a failure to parse a 2xx response body.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode TMDB response: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// newNetworkError wraps err, replacing any api_key in a *url.Error.
func newNetworkError(err error) *NetworkError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		redacted := *urlErr
		redacted.URL = redactURL(urlErr.URL)
		return &NetworkError{Err: &redacted}
	}
	return &NetworkError{Err: err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
