package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks records rejected before any store interaction.
	ErrValidation = errors.New("invalid medicine record")

	// ErrStore marks failures of the graph store. Nothing was committed.
	ErrStore = errors.New("graph store failure")
)

// ValidationError names the offending field using its JSON path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a store failure. Retryable is true for transient
// failures after which the same import may simply be invoked again.
type StoreError struct {
	Retryable bool
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStore, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// IsRetryable reports whether err is a retryable store failure.
func IsRetryable(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Retryable
}
