package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError reports an input that violates a precondition. It is
// always returned (never panicked) before any placement or mutation
// happens.
type ValidationError struct {
	Field   string
	Value   interface{}
	Reason  string
	wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field=%s value=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.wrapped
}

func newValidationError(field string, value interface{}, reason string) *ValidationError {
	e := &ValidationError{Field: field, Value: value, Reason: reason}
	e.wrapped = errors.Wrapf(fmt.Errorf(reason), "field %s", field)
	return e
}

// InternalInvariantViolation is a programming error: a post-pack assertion
// (Y-overflow, shelf overlap, marker-length excess) that should never
// happen for valid inputs. Engine code panics with one; the exported entry
// points recover it at the boundary and return it as an error so library
// callers never observe an unrecovered panic.
type InternalInvariantViolation struct {
	Component string
	Line      int
	Shelf     int
	Detail    string
}

func (e *InternalInvariantViolation) Error() string {
	return fmt.Sprintf("internal invariant violation in %s (line=%d shelf=%d): %s",
		e.Component, e.Line, e.Shelf, e.Detail)
}

// recoverInvariant turns a panic raised with an *InternalInvariantViolation
// into a returned error. Any other panic value is re-raised: only
// invariant violations are a recognized failure mode here.
func recoverInvariant(err *error) {
	if r := recover(); r != nil {
		if iv, ok := r.(*InternalInvariantViolation); ok {
			*err = iv
			return
		}
		panic(r)
	}
}
