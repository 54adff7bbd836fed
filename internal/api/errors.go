package api

import (
	"fmt"
	"net/http"
)

// APIError reports a profile response with a non-2xx status.
type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	if text := http.StatusText(e.Status); text != "" {
		return fmt.Sprintf("profile API error %d (%s)", e.Status, text)
	}
	return fmt.Sprintf("profile API error %d", e.Status)
}

// NetworkError reports a profile request that never produced a response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("profile request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a 2xx response whose body is not a profile record.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("profile API returned an unreadable body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
