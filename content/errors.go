package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped by every NotFoundError.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

// missingFields builds a ValidationError naming every absent required field.
func missingFields(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Reason: "missing required fields: " + strings.Join(fields, ", ")}
}

// ConflictError reports that a slug is already used by another post.
type ConflictError struct {
	Slug string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slug %q already exists", e.Slug)
}

// NotFoundError reports that no post matched the lookup key.
type NotFoundError struct {
	Key   string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post with %s %q not found", e.Key, e.Value)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps an unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
