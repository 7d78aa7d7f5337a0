package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by a service wraps exactly one of them,
// so callers can branch with errors.Is. ErrRuntime is the fallback and must
// not be read as "the resource exists".
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRuntime          = errors.New("runtime error")
	ErrValidation       = errors.New("validation error")
)

// OperationError is the error type returned by every service operation.
type OperationError struct {
	Op     string // e.g. "container.stop"
	Target string // container id, image reference, ...
	Kind   error  // one of the Err* kinds above
	Err    error
}

func (e *OperationError) Error() string {
	prefix := e.Op
	if e.Target != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", prefix, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewOperationError builds an OperationError of the given kind.
func NewOperationError(op, target string, kind, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Kind: kind, Err: err}
}

// ValidationError reports malformed caller input.
func ValidationError(op, target, format string, args ...any) *OperationError {
	return NewOperationError(op, target, ErrValidation, fmt.Errorf(format, args...))
}

// KindOf returns the error kind carried by err, or ErrRuntime when err does
// not carry one. It returns nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrNotFound, ErrPermissionDenied, ErrValidation, ErrRuntime} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrRuntime
}
