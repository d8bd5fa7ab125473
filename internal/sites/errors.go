package sites

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy shared by the client controllers. Every remote failure unwraps to
// exactly one of these kinds.
var (
	// ErrNotFound means the resource does not exist yet (an expected empty state).
	ErrNotFound = errors.New("not found")
	// ErrForbidden means access was denied; callers must not retry.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is a client-side schema failure that never reached the network.
	ErrValidation = errors.New("validation failed")
	// ErrRejected means the server answered with a non-2xx status other than 403/404/5xx.
	ErrRejected = errors.New("rejected by server")
	// ErrTransient covers network failures and 5xx responses.
	ErrTransient = errors.New("transient failure")
)

// APIError carries the HTTP outcome of a failed call.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *APIError) Error() string {
	var b strings.Builder
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, "status %d", e.Status)
	} else {
		b.WriteString("request failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the taxonomy kind and the underlying cause.
func (e *APIError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// KindForStatus maps an HTTP status code onto the taxonomy. 2xx returns nil.
func KindForStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrTransient
	default:
		return ErrRejected
	}
}

// Classify returns the taxonomy kind of err, or nil when err is nil. Errors outside
// the taxonomy (including context cancellation) are reported as ErrTransient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrRejected, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrTransient
}

// Describe renders a user-facing message that keeps each kind distinguishable.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "The operation was cancelled."
	}
	switch Classify(err) {
	case ErrValidation:
		return "Some fields need attention: " + err.Error()
	case ErrForbidden:
		return "You are not authorized to change this website."
	case ErrNotFound:
		return "This website does not exist yet."
	case ErrRejected:
		return "The server rejected the change: " + err.Error()
	default:
		return "Could not reach the server. Your change was reverted; please try again."
	}
}
