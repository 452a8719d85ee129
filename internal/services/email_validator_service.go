package services

import (
	"context"
	"errors"
	"regexp"
)

// EmailValidator checks an address before an account is created. The local
// implementation is syntax-only; external/abstractapi adds reputation checks.
type EmailValidator interface {
	Validate(ctx context.Context, email string) error
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type LocalValidator struct{}

func NewLocalValidator() *LocalValidator {
	return &LocalValidator{}
}

func (v *LocalValidator) Validate(_ context.Context, email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}
