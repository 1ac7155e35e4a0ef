package apod

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate  = errors.New("apod: invalid date")
	ErrInvalidRange = errors.New("apod: invalid date range")
	ErrRateLimited  = errors.New("apod: upstream rate limit reached")
	ErrNotFound     = errors.New("apod: no picture for that date")
)

// APIError represents a failed upstream request.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("apod: upstream %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apod: upstream %s: %s", e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }
