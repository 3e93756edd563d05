package notifications

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnauthorized   = errors.New("notifications: not authorized")
	ErrNotFound       = errors.New("notifications: resource not found")
	ErrRejected       = errors.New("notifications: request rejected")
	ErrServer         = errors.New("notifications: server error (5xx)")
	ErrUnavailable    = errors.New("notifications: host unreachable or transport failure")
	ErrTimeout        = errors.New("notifications: request timed out")
	ErrBadResponse    = errors.New("notifications: invalid response format or malformed data")
	ErrInvalidFilter  = errors.New("notifications: invalid filter")
	ErrInvalidRequest = errors.New("notifications: invalid request")
)

// APIError wraps a sentinel with the failing operation and what the server
// said about it.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	RequestID string
	Body      string
	Err       error // transport or decode error, if any
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("notifications: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// MarkReadError is returned when the server did not accept a mark-read.
// Optimistic local state is left as it was applied; callers decide whether
// to refetch.
type MarkReadError struct {
	IDs []string // empty means "all"
	Err error
}

func (e *MarkReadError) Error() string {
	target := "all"
	if len(e.IDs) > 0 {
		target = strings.Join(e.IDs, ",")
	}
	return fmt.Sprintf("notifications: mark read %s: %v", target, e.Err)
}

func (e *MarkReadError) Unwrap() error {
	return e.Err
}

func sentinelForStatus(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrUnauthorized
	case status == 404:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrRejected
	}
}
