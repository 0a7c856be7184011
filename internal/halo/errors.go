package halo

import (
	"errors"
	"fmt"
)

// StatusError is a non-2xx API response. It triggers a retry; after
// exhaustion it either aborts the run or is absorbed, per the call site's
// policy.
type StatusError struct {
	Method string
	URL    string
	Status int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.Status, e.Reason)
}

// IsStatusError reports whether err wraps a StatusError.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
