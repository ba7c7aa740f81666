package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for callers. Handlers map kinds to HTTP
// statuses; scheduler loops use them to decide whether to keep going.
type Kind int

const (
	// KindValidation - malformed input, nothing was mutated.
	KindValidation Kind = iota + 1
	// KindConflict - the operation targets state that has already moved on
	// (decided appeal, terminal flag, duplicate pending appeal).
	KindConflict
	// KindNotFound - the target does not exist. Most callers treat this as
	// a successful no-op.
	KindNotFound
	// KindDependency - an external port failed or timed out.
	KindDependency
	// KindPersistence - the store failed; fatal for the operation at hand.
	KindPersistence
)

// Error is the engine's error type. It wraps an underlying cause when one
// exists.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func persistenceError(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf extracts the classification from an error, or zero if the error did
// not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
