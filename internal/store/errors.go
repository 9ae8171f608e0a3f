package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist in the
	// store. Entity-specific variants below wrap this error so callers can
	// check for the generic condition with errors.Is.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique record.
	ErrDuplicate = errors.New("record already exists")

	// ErrInvalidEntity is returned when a record fails a database constraint
	// before being stored. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid record")

	// ErrProgressNotFound indicates that no progress row exists for the account.
	ErrProgressNotFound = fmt.Errorf("%w: progress", ErrNotFound)

	// ErrCardNotFound indicates that the requested review card does not exist.
	ErrCardNotFound = fmt.Errorf("%w: review card", ErrNotFound)
)

// IsNotFound reports whether the error is any kind of "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
