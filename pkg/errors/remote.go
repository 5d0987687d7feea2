package errors

import (
	"fmt"
	"strings"
)

// RemoteError is a non-2xx answer from one of the server's admin APIs.
type RemoteError struct {
	Method string
	URL    string
	Status int
	Body   string
	// Fault is the SOAP faultstring, empty for REST responses.
	Fault string
}

func (e *RemoteError) Error() string {
	if e.Fault != "" {
		return fmt.Sprintf("%s %s: status %d: fault: %s", e.Method, e.URL, e.Status, e.Fault)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, truncate(e.Body, 512))
}

// Text is what classifiers match against: the fault string when present,
// otherwise the raw body.
func (e *RemoteError) Text() string {
	if e.Fault != "" {
		return e.Fault
	}
	return e.Body
}

// AsRemote returns the RemoteError in err's chain, if any.
func AsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if As(err, &re) {
		return re, true
	}
	return nil, false
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
