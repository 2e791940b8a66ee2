package store

import (
	"errors"
	"fmt"
)

// Kind classifies record store failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means the feedback table or relation does not exist.
	KindNotFound
	// KindConstraintViolation means the store rejected a row, e.g. a rating
	// outside 1..5 or a missing required column.
	KindConstraintViolation
	// KindNetwork means the store could not be reached.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the error type returned by RecordClient implementations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err as a store error of the given kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of the first *Error in err's chain. Errors that did
// not come from a store are KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err means the feedback table is missing.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
