package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a unique-constraint violation, e.g. a duplicate booking reference.
	ErrConflict = errors.New("conflict")
	// ErrOverlap means an active booking already holds the room for some of the requested nights.
	ErrOverlap = errors.New("overlapping booking")
	// ErrLockTimeout means the room lock could not be acquired in time; the caller may retry.
	ErrLockTimeout = errors.New("lock timeout")
)
