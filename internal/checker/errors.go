package checker

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks a malformed or missing checker input.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError names the offending field.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(field, format string, args ...any) error {
	return &ArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
