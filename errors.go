package opts

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOption matches every *UnknownOptionError.
	ErrUnknownOption = errors.New("opts: unknown option")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("opts: validation failed")
	// ErrScopeMismatch indicates a write or delete tagged with a scope the
	// manager does not own.
	ErrScopeMismatch = errors.New("opts: scope mismatch")
	// ErrDuplicateOption indicates two descriptors share a canonical name.
	ErrDuplicateOption = errors.New("opts: duplicate option")
	// ErrNotInitialized is returned by manager operations issued before Init.
	ErrNotInitialized = errors.New("opts: manager not initialized")
	// ErrClosed is returned by manager operations issued after Close.
	ErrClosed = errors.New("opts: manager closed")
	// ErrBootKeyMissing is the only recoverable boot configuration outcome.
	ErrBootKeyMissing = errors.New("opts: boot config key missing")
)

// UnknownOptionError reports a name with no registered descriptor.
type UnknownOptionError struct {
	Name string
}

func (e *UnknownOptionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("opts: the option %q does not exist", e.Name)
}

func (e *UnknownOptionError) Is(target error) bool {
	return target == ErrUnknownOption
}

// ValidationError reports a candidate value rejected by a descriptor.
type ValidationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("opts: option %q rejected: %s: %v", e.Name, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("opts: option %q rejected: %v", e.Name, e.Err)
	default:
		return fmt.Sprintf("opts: option %q rejected: %s", e.Name, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BootConfigError reports a boot configuration value that cannot become an
// option default. It is always fatal.
type BootConfigError struct {
	Path string
	Want Kind
	Got  Kind
	Err  error
}

func (e *BootConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("opts: boot config %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("opts: boot config %q: expected %s, got %s", e.Path, e.Want, e.Got)
}

func (e *BootConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func scopeMismatch(owned, got Scope) error {
	return fmt.Errorf("%w: manager owns %s, got %s", ErrScopeMismatch, owned, got)
}
