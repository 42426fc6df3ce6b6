package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when a post references no configured source
	ErrSourceNotFound = errors.New("source not found")

	// ErrSyncInFlight is returned while another date sync is outstanding
	ErrSyncInFlight = errors.New("a date sync is already in progress")
)

// ValidationError reports malformed input, raised before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError is a non-success response from the source service
type UpstreamError struct {
	Status  int
	Message string
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("notion api error %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure reaching the source service
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("could not reach notion: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
