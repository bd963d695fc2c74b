package field

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField signals a mismatch between a form template and the Set:
	// the template (or a caller) referenced a field that was never declared.
	ErrUnknownField = errors.New("field: unknown field")

	errFieldNameMissing = errors.New("field: name is required")
)

// UnknownFieldError reports the undeclared name. It matches ErrUnknownField
// through errors.Is.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field: unknown field %q", e.Name)
}

// Is allows errors.Is(err, ErrUnknownField).
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// IsUnknownField reports whether err (or anything it wraps) is an
// UnknownFieldError.
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}
