package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTransform means no transform is registered for the mapping.
	ErrUnknownTransform = errors.New("no transform registered")

	// ErrSkipRecord is returned by a transform that declines a record. The
	// record is counted as skipped, not failed.
	ErrSkipRecord = errors.New("record skipped")
)

// Error is a transformation failure for one record. It is never retried.
type Error struct {
	Mapping string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Mapping, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Skip returns an ErrSkipRecord carrying reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipRecord, reason)
}

func missingField(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
