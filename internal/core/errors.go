package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error leaving the services wraps exactly one of
// these sentinels; callers classify with errors.Is and never by message.
var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a uniqueness or exclusive-linkage violation.
	// The attempted mutation leaves no partial state behind.
	ErrConflict = errors.New("conflict")
	// ErrState marks a mutation against a locked or realized budget plan.
	ErrState = errors.New("invalid state")
	// ErrForbidden marks a call without the treasurer capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks an unknown id on read, update or delete.
	ErrNotFound = errors.New("not found")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Statef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
