package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by mutations that target a record which does not
// exist. Get-style methods return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a create collides with an existing record.
var ErrConflict = errors.New("record already exists")

// RetryableError wraps a transient backend failure. The coordinator reverts
// its optimistic state when it sees one and reports the condition as
// retryable to the caller.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable store failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as transient. Returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is, or wraps, a transient store failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
