package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for bridge operations.
//
// These can be checked with errors.Is() on any error returned by the bridge:
//
//	if errors.Is(err, bridge.ErrClosed) {
//	    // bridge shut down or worker gone
//	}
var (
	// ErrClosed is returned for any operation submitted to, or still pending on,
	// a bridge whose worker has terminated.
	ErrClosed = errors.New("bridge: connection closed")

	// ErrWorkerPanicked is the lifecycle result of a worker that was torn down
	// by a panic inside an operation.
	ErrWorkerPanicked = errors.New("bridge: worker panicked")
)

// Kind classifies an error returned through the bridge.
type Kind int

const (
	// KindResource is a failure raised by the confined resource itself
	// (constraint violation, malformed query, ...).
	KindResource Kind = iota + 1

	// KindCaller is an error produced by the caller's own operation logic.
	KindCaller

	// KindClosed means the worker was gone before the result could be delivered.
	KindClosed
)

// String returns the kind name used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindCaller:
		return "caller"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the uniform error type returned by Delegate, DelegateMut and
// Pending.Wait. The original error is kept intact and reachable through
// errors.Is / errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindClosed {
		return e.Err.Error()
	}
	return fmt.Sprintf("bridge: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// closedError builds the KindClosed error. Every Closed condition goes
// through here so errors.Is(err, ErrClosed) always holds.
func closedError() error {
	return &Error{Kind: KindClosed, Err: ErrClosed}
}

// IsClosed reports whether err means the bridge was closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// KindOf returns the Kind of a bridge error, if err is (or wraps) one.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// PanicError is the worker's lifecycle result when an operation panicked.
// It matches ErrWorkerPanicked with errors.Is.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the worker goroutine's stack at the point of recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrWorkerPanicked, e.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == ErrWorkerPanicked
}
