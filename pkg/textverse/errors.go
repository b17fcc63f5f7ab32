package textverse

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input before any state was touched.
// Reserved folder labels, duplicate labels, and malformed import records all
// surface as validation errors.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a mutation that targeted a record which does not
// exist. The operation was a no-op; no state changed and nothing needs to
// be rolled back.
type NotFoundError struct {
	Kind string // note, folder, share, trash entry
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func notFoundErr(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
