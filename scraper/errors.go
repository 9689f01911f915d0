package scraper

import (
	"context"
	"errors"
	"fmt"
)

// classified is implemented by every error classifyError produces. The
// label doubles as the error_type metric value and the RunResult key.
type classified interface {
	error
	label() string
}

// permanent marks responses that will not change on retry.
type permanent interface {
	permanent()
}

// ErrTimeout indicates a request or dial deadline was exceeded.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return "timeout: " + e.Err.Error() }
func (e ErrTimeout) Unwrap() error { return e.Err }
func (ErrTimeout) label() string   { return "timeout" }

// ErrConnection indicates the origin could not be reached.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return "connection: " + e.Err.Error() }
func (e ErrConnection) Unwrap() error { return e.Err }
func (ErrConnection) label() string   { return "connection" }

// ErrForbidden is an HTTP 403. It is not retried.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string { return "forbidden: " + e.Err.Error() }
func (e ErrForbidden) Unwrap() error { return e.Err }
func (ErrForbidden) label() string   { return "forbidden" }
func (ErrForbidden) permanent()      {}

// ErrNotFound is an HTTP 404. It is not retried.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string { return "not_found: " + e.Err.Error() }
func (e ErrNotFound) Unwrap() error { return e.Err }
func (ErrNotFound) label() string   { return "not_found" }
func (ErrNotFound) permanent()      {}

// ErrRateLimited is an HTTP 429.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string { return "rate_limited: " + e.Err.Error() }
func (e ErrRateLimited) Unwrap() error { return e.Err }
func (ErrRateLimited) label() string   { return "rate_limited" }

// ErrHTTPStatus is any other non-success status.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http_status %d: %v", e.StatusCode, e.Err)
}
func (e ErrHTTPStatus) Unwrap() error { return e.Err }
func (ErrHTTPStatus) label() string   { return "http_status" }

// FetchError is returned once every attempt for a URL has failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could plausibly succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var p permanent
	return !errors.As(err, &p)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var c classified
	if errors.As(err, &c) {
		return c.label()
	}
	return "other"
}
