package errors

import (
	"strings"
)

// Errors accumulates the failures of a batch operation. A nil Errors
// means nothing failed, so callers declare one, Append into it and
// compare the result against nil; any non-nil value holds at least one
// error.
type Errors interface {
	error
	// Slice returns a copy of the accumulated errors.
	Slice() []error
	// Len reports how many errors accumulated, always > 0.
	Len() int

	items() multi
}

type multi []error

func (m multi) Error() string {
	msgs := make([]string, 0, len(m))
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

func (m multi) Slice() []error {
	return append([]error(nil), m...)
}

func (m multi) Len() int {
	return len(m)
}

func (m multi) items() multi {
	return m
}

// Append adds err to errs, flattening a nested Errors value. Appending
// nil returns errs unchanged. The result never shares a backing array
// with errs, so earlier values stay intact.
func Append(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	var out multi
	if errs != nil {
		prev := errs.items()
		out = make(multi, len(prev), len(prev)+1)
		copy(out, prev)
	}
	if nested, ok := err.(Errors); ok {
		return append(out, nested.items()...)
	}
	return append(out, err)
}

// Combine merges two possibly nil errors. With one side nil it returns
// the other; with both non-nil it returns an Errors holding both,
// flattened.
func Combine(e, f error) error {
	if e == nil {
		return f
	}
	if f == nil {
		return e
	}
	errs, ok := e.(Errors)
	if !ok {
		errs = Append(nil, e)
	}
	return Append(errs, f)
}

// Defer folds the error of a deferred cleanup into the caller's named
// return value. Use as: defer errors.Defer(&err, f.Close).
func Defer(err *error, cleanup func() error) {
	*err = Combine(*err, cleanup())
}
