package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected outcomes. Callers branch with errors.Is.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProviderTimeout means an external call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderUnreachable means an external call failed before a
	// response arrived, or the provider answered with a non-200 status.
	ErrProviderUnreachable = errors.New("provider unreachable")
)

// ValidationError reports bad caller input. It names the offending field so
// the presentation layer can show the precise reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MalformedPayloadError means an external provider's payload could not be
// decoded at all. Individual bad records inside an otherwise valid payload
// are skipped, not reported through this type.
type MalformedPayloadError struct {
	Source string
	Err    error
}

func (e MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Source, e.Err)
}

func (e MalformedPayloadError) Unwrap() error { return e.Err }

// StorageError means the backing store failed. No further work is possible
// without persistence, so this class propagates as fatal to the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }
