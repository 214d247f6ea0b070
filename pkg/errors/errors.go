package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the kinds of failure the scrape engine distinguishes
type ErrorType string

const (
	ErrorTypeUnsupportedType ErrorType = "unsupported_type"
	ErrorTypeInvalidInput    ErrorType = "invalid_input"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeExtraction      ErrorType = "extraction"
)

// Error represents a scrape error with type information.
// Err holds the underlying cause; for network errors it is the last
// failure observed before the retry budget ran out.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewUnsupportedType reports a scrape type outside user, hashtag and trend
func NewUnsupportedType(scrapeType string) *Error {
	return &Error{
		Type:    ErrorTypeUnsupportedType,
		Message: fmt.Sprintf("unsupported scrape type %q", scrapeType),
	}
}

// NewInvalidInput reports a request whose input cannot address a feed
func NewInvalidInput(message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidInput,
		Message: message,
	}
}

// NewNetwork wraps the last fetch failure once all attempts are spent
func NewNetwork(url string, attempts int, last error) *Error {
	code := 0
	var statusErr *StatusError
	if errors.As(last, &statusErr) {
		code = statusErr.StatusCode
	}
	return &Error{
		Type:    ErrorTypeNetwork,
		Message: fmt.Sprintf("fetching %s failed after %d attempt(s)", url, attempts),
		Code:    code,
		Err:     last,
	}
}

// NewExtraction reports an embedded payload that could not be parsed
func NewExtraction(message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeExtraction,
		Message: message,
		Err:     cause,
	}
}

// StatusError is a single attempt that reached the server but got a non-2xx answer
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// TypeOf returns the error type of err, or "" when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IsUnsupportedType(err error) bool { return TypeOf(err) == ErrorTypeUnsupportedType }
func IsInvalidInput(err error) bool    { return TypeOf(err) == ErrorTypeInvalidInput }
func IsNetwork(err error) bool         { return TypeOf(err) == ErrorTypeNetwork }
func IsExtraction(err error) bool      { return TypeOf(err) == ErrorTypeExtraction }

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}
