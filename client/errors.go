package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed client operation. Callers branch on kinds,
// not on message strings.
type Kind int

const (
	// KindAuth is an HTTP 401 on any operation. Never paired with a
	// local fallback: nothing can be read or written as an
	// unauthenticated user.
	KindAuth Kind = iota + 1

	// KindConflict is an HTTP 409 on create: the (sourceType, sourceId)
	// pair already has a task. Treat as "already handled", not retryable.
	KindConflict

	// KindNotFound is an HTTP 404 on done/snooze/unsnooze: the target
	// task does not exist server-side (it may still be cache-only).
	KindNotFound

	// KindServer is any other non-2xx response.
	KindServer

	// KindNetwork is a transport-level failure: the request never
	// produced an HTTP response.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the failure type every client operation surfaces. Operations
// never panic and never return an untyped transport error.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, zero for KindNetwork
	Message string
	Offline bool // set when the failure was connectivity, not the server
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("client: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("client: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of err, or zero when err is not a client Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsOffline reports whether err was caused by a connectivity failure.
func IsOffline(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Offline
}

func authError() *Error {
	return &Error{Kind: KindAuth, Status: 401, Message: "not authenticated"}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Offline: true, Message: err.Error(), cause: err}
}
