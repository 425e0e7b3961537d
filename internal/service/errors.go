package service

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden      = errors.New("not allowed to change this goal")
	ErrExportDisabled = errors.New("exports are not configured")
)

// ValidationError is a rejected input. It is always returned before any
// write reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
