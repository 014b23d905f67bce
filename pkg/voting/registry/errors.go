package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildInNotRegistrable is returned when the text is a build-in
	// reference or declares a name that belongs to a build-in.
	ErrBuildInNotRegistrable = errors.New("build-in votings cannot be registered")

	// ErrAlreadyRegistered is returned when a name is already bound.
	ErrAlreadyRegistered = errors.New("voting already registered")

	// ErrMissingDeclarationName is returned when the text is a voting
	// function without a declare block.
	ErrMissingDeclarationName = errors.New("voting has no declaration name")

	// ErrLimitedNotRegistrable is returned when the text is a limited call.
	ErrLimitedNotRegistrable = errors.New("limited votings cannot be registered")

	// ErrInvalidName is returned when an explicit alias is not a valid name.
	ErrInvalidName = errors.New("invalid voting name")
)

// RegistrationError describes a failed registration.
type RegistrationError struct {
	// Name is the voting name involved, if known
	Name string

	// Operation is "register" or "register_at"
	Operation string

	// Err is the sentinel or parse error that caused the failure
	Err error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("registry error for voting %q during %s: %v", e.Name, e.Operation, e.Err)
	}
	return fmt.Sprintf("registry error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}
