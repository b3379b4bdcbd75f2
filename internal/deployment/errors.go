package deployment

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/edgeforge/internal/util/retry"
)

var (
	// ErrKeyExists is returned when a context key is written twice.
	ErrKeyExists = errors.New("context key already exists")
	// ErrKeyNotFound is returned when a state reads a key no earlier state wrote.
	ErrKeyNotFound = errors.New("context key not found")
	// ErrAlreadySubmitted is returned by submit adapters when a resource with
	// the deterministic name exists already.
	ErrAlreadySubmitted = errors.New("already submitted")
	// ErrSuspended is returned when the caller cancelled during a wait. The
	// execution is checkpointed and can be resumed.
	ErrSuspended = errors.New("execution suspended")
	// ErrExecutionNotFound is returned by Resume for an unknown id.
	ErrExecutionNotFound = errors.New("execution not found")
	// ErrExecutionFinished is returned by Resume for a terminal execution.
	ErrExecutionFinished = errors.New("execution already finished")
	// ErrExecutionExists is returned by Start for an id that has a checkpoint.
	ErrExecutionExists = errors.New("execution already exists")
	// ErrDeadlineExceeded is returned when the execution deadline passed.
	ErrDeadlineExceeded = errors.New("execution deadline exceeded")
)

// FailureError carries an explicit failure decision of a state, such as a
// job that reported FAILED.
type FailureError struct {
	Class FailureClass
	Err   error
}

func (e *FailureError) Error() string {
	return e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Failf returns a permanent FailureError.
func Failf(format string, args ...any) error {
	return &FailureError{Class: ClassPermanent, Err: fmt.Errorf(format, args...)}
}

// ClassOf returns the failure class of err.
func ClassOf(err error) FailureClass {
	var fe *FailureError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Class
	case errors.Is(err, ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case retry.IsTransient(err):
		return ClassTransient
	default:
		return ClassPermanent
	}
}
