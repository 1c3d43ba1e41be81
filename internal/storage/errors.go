package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when an operation references a
	// session id with no row behind it.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when EndSession targets a session
	// whose end timestamp is already set. No rows are touched.
	ErrSessionEnded = errors.New("session already ended")
)

// StorageError wraps a failure of the underlying store. The operation it
// covers is aborted with no partial writes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// ImportError reports an empty or malformed import payload. Imports fail
// atomically; no partial import is ever observable.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("import error: %s", e.Reason)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
