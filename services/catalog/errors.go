package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicate reports that an entry with the same title and year already exists.
var ErrDuplicate = errors.New("entry already exists")

// ValidationError carries a user-facing message about missing or invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
