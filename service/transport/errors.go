package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Input validation errors.  Sentinel variables allow callers to detect the
// condition via errors.Is instead of string comparisons.
var (
	// ErrEmptyGrievance indicates a start call without grievance text.
	ErrEmptyGrievance = errors.New("transport: empty grievance")

	// ErrEmptyFeedback indicates a refine call without feedback text.
	ErrEmptyFeedback = errors.New("transport: empty feedback")

	// ErrEmptySession indicates a call referencing no session identifier.
	ErrEmptySession = errors.New("transport: empty session id")
)

// genericDetail is used when the failure body is absent or unparseable.
const genericDetail = "request failed"

// APIError represents a non-2xx response from the workflow API.  Detail is
// extracted from the server's {"detail": ...} failure body, falling back to a
// generic message.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Detail)
}

// TransportError represents a network-level failure: the request never
// produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *TransportError) Unwrap() error { return e.Err }

// IsIterationLimit reports whether err is the server's refusal to refine
// beyond the session's iteration budget.  UI layers map this to disabling
// the refine action rather than showing a generic error.
func IsIterationLimit(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Detail), "maximum iterations")
}
