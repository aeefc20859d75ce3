// Package failure defines the typed errors produced while resolving metadata.
// Every resolver returns one of these kinds so that fallback can be decided in
// one place.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Transport covers DNS, connect, TLS, timeout and body read errors.
	Transport Kind = iota + 1
	// UpstreamStatus is a non-2xx response.
	UpstreamStatus
	// Parse covers malformed HTML, PDF or JSON.
	Parse
	// NotFound means the registry has no record (DOI lookups).
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case UpstreamStatus:
		return "upstream_status"
	case Parse:
		return "parse"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a failure tied to the URL that produced it.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status > 0 && e.Err == nil:
		return fmt.Sprintf("%s: HTTP %d for %s", e.Kind, e.Status, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err as a failure of the given kind.
func New(kind Kind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// Status builds an UpstreamStatus failure for a non-2xx response.
func Status(url string, code int) *Error {
	return &Error{Kind: UpstreamStatus, URL: url, Status: code}
}

// KindOf returns the kind of the first failure in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusOf returns the HTTP status recorded on a failure, or 0.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
