package geo

import (
	"fmt"
	"net/http"
)

// MalformedLatLonError is returned when a path segment is not a comma-separated
// lat,lon pair. StatusCode is always http.StatusBadRequest.
type MalformedLatLonError struct {
	Message    string
	StatusCode int
}

func newMalformedLatLonError(text, reason string) *MalformedLatLonError {
	return &MalformedLatLonError{
		Message:    fmt.Sprintf("malformed lat/lon pair %q: %s", text, reason),
		StatusCode: http.StatusBadRequest,
	}
}

func (e *MalformedLatLonError) Error() string {
	return e.Message
}
