package devops

import (
	"errors"
	"fmt"
)

var (
	// ErrURLTooLong means a request carrying a single id still exceeds the
	// address length budget. This is a configuration problem and is not retried.
	ErrURLTooLong = errors.New("request url exceeds maximum length with a single id")

	// ErrMissingQueryValue means an over-length request has no ids parameter to
	// split on.
	ErrMissingQueryValue = errors.New("ids query parameter missing")
)

// TransportError reports a failed request: either the transport itself
// failed (Err is set) or the server answered with a non-success status.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
