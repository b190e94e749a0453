package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyQuestion is returned when the question is blank after trimming.
	ErrEmptyQuestion = errors.New("question text is empty")
	// ErrResolverUnavailable means no chunk-location service is configured.
	ErrResolverUnavailable = errors.New("citation resolver unavailable")
	// ErrSessionClosed is returned by operations on a torn-down session.
	ErrSessionClosed = errors.New("query session closed")
)

// TransportError wraps a failed backend round trip: the request did not
// complete, the backend answered with a non-success status, or the body
// could not be decoded.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: backend returned %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: transport failure", e.Op, e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage is the display-safe text for the failure. It never carries
// the URL or the underlying transport error.
func (e *TransportError) UserMessage() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("The query service responded with an error (status %d). Please try again.", e.StatusCode)
	}
	return "The query service could not be reached. Please try again."
}

// ParseError reports a citation string that does not follow the
// path:page:chunk convention.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse citation %q: %s", e.Raw, e.Reason)
}
