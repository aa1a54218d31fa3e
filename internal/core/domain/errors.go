package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCatalogMissing indicates the destination connector has no catalog
	ErrCatalogMissing = errors.New("catalog is missing")

	// ErrStreamNotFound indicates the stream name does not resolve in the catalog
	ErrStreamNotFound = errors.New("stream not found in catalog")

	// ErrInvalidSchedule indicates the schedule fields are inconsistent
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidIntervalUnit indicates an unknown sync interval unit
	ErrInvalidIntervalUnit = errors.New("invalid sync interval unit")

	// ErrInvalidTransition indicates a lifecycle event fired from a state that does not allow it
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSyncDiscarded indicates the sync has been soft-deleted
	ErrSyncDiscarded = errors.New("sync is discarded")
)

// ValidationError describes why a sync or catalog was rejected by the validation gate.
// It matches ErrInvalidInput and the wrapped cause with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Cause: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Cause}
}

// TransitionError is returned when an event is fired from a status that is not
// an allowed source for it. It always matches ErrInvalidTransition.
type TransitionError struct {
	Event SyncEvent
	From  SyncStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q not permitted from status %q", ErrInvalidTransition, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
