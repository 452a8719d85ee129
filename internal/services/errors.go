package services

import (
	"errors"
	"fmt"
)

// Error categories. Handlers translate these to HTTP status codes, so every
// error leaving a service must wrap exactly one of them.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("already registered")
	ErrAuthentication  = errors.New("authentication failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAuthorization   = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

func wrap(category error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", category, fmt.Sprintf(format, args...))
}
