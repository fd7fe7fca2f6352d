package domain

import "errors"

var (
	// ErrValidation marks caller input rejected before any I/O.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a valid request that produced no data.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks network, timeout or rate-limit failures. Callers may retry.
	ErrTransient = errors.New("transient failure")
	// ErrPermissionDenied marks a refused location permission. Terminal for a session.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrSourceFailure marks an unreachable record source.
	ErrSourceFailure = errors.New("record source unavailable")
	// ErrSessionClosed is returned by operations on a torn-down explore session.
	ErrSessionClosed = errors.New("session closed")
)
