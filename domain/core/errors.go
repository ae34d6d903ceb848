package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrTestSetNotFound    = fmt.Errorf("%w: test set", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)

	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// NewNotFoundError wraps ErrNotFound with the resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
