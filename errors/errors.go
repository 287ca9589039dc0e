// Package errors provides error handling for the quartz-dynamo job store.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Network portability for distributed systems
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrTriggerAlreadyExists) {
//	    // handle duplicate
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the job store contract. Use these with errors.Is()
// for type-safe checks; wrap them with errors.Wrap() to add context while
// preserving the kind.
var (
	// ErrJobAlreadyExists indicates a non-replacing StoreJob hit an existing key.
	ErrJobAlreadyExists = New("job already exists")

	// ErrTriggerAlreadyExists indicates a non-replacing StoreTrigger hit an existing key.
	ErrTriggerAlreadyExists = New("trigger already exists")

	// ErrCalendarAlreadyExists indicates a non-replacing StoreCalendar hit an existing name.
	ErrCalendarAlreadyExists = New("calendar already exists")

	// ErrInvalidReference indicates a trigger refers to a job or calendar
	// that does not exist where one is required.
	ErrInvalidReference = New("invalid reference")

	// ErrConditionFailed indicates a conditional write lost an optimistic
	// concurrency race. Acquisition handles this internally by skipping the
	// candidate; it never surfaces through the job store SPI.
	ErrConditionFailed = New("conditional write failed")

	// ErrPersistence indicates a storage backend call failed (network,
	// throttling). Reads are retried before this surfaces.
	ErrPersistence = New("persistence failure")
)

// IsAlreadyExists checks if an error is any of the duplicate-key sentinels.
func IsAlreadyExists(err error) bool {
	return err != nil && IsAny(err, ErrJobAlreadyExists, ErrTriggerAlreadyExists, ErrCalendarAlreadyExists)
}

// IsInvalidReference checks if an error is or wraps ErrInvalidReference.
func IsInvalidReference(err error) bool {
	return err != nil && Is(err, ErrInvalidReference)
}

// IsConditionFailed checks if an error is or wraps ErrConditionFailed.
func IsConditionFailed(err error) bool {
	return err != nil && Is(err, ErrConditionFailed)
}

// IsPersistence checks if an error is or wraps ErrPersistence.
func IsPersistence(err error) bool {
	return err != nil && Is(err, ErrPersistence)
}

// WrapPersistence wraps a backend error as a persistence failure with context.
func WrapPersistence(err error, context string) error {
	return Wrap(Wrap(ErrPersistence, err.Error()), context)
}
