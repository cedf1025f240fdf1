package session

import "errors"

var (
	// ErrNotFound is returned by [Store.Load] when no session is persisted.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt is returned when a persisted value cannot be decoded into a session.
	ErrCorrupt = errors.New("session data corrupt")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("session backend unavailable")
	// ErrInvalidUser is returned when a user record has no usable id.
	ErrInvalidUser = errors.New("invalid user record")
)
