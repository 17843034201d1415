// Package errors carries the error conventions used across the repo:
// constructors that attach stack traces, wrapping with context, and an
// accumulator for batch operations that must not stop at the first
// failure.
package errors

import (
	"github.com/pkg/errors"
)

// New returns an error carrying a stack trace.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats an error carrying a stack trace.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Wrapf annotates err with a formatted message. It never returns nil: a
// nil err produces a fresh error, so a failure path cannot turn into a
// silent success.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Errorf(format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

// Cause unwraps err through every layer added by Wrapf and returns the
// innermost error, typically for a type assertion.
func Cause(err error) error {
	return errors.Cause(err)
}
