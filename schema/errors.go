package schema

import (
	"errors"
	"fmt"
)

// Errors shared by the catalog, scoring, query and client layers.
var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidMetricKey = errors.New("invalid metric key")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidWeight    = errors.New("invalid weight")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidSort      = errors.New("invalid sort order")
	ErrNetworkFailure   = errors.New("network failure")
	ErrNotFound         = errors.New("not found")
)

// APIError is a well-formed API response that reported failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return "api error: " + e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}
