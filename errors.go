package gospeccore

import (
	"errors"
	"fmt"
)

// ValidationError reports an input that can never produce a result:
// mismatched array lengths, empty reference sets, degenerate intervals.
// These are deterministic failures, so callers must not retry them.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
