package sockethandle

import (
	"errors"
	"fmt"
)

var (
	// ErrHandleDisposed is returned when an operation is attempted on a
	// handle whose release has already begun. It is never retriable.
	ErrHandleDisposed = errors.New("socket handle already disposed")

	// ErrConcurrentBind is returned when a handle that is open and already
	// registered with a completion dispatcher is bound a second time. A
	// handle may only ever be bound once; a second unsynchronized attempt
	// is a caller bug, not a transient condition.
	ErrConcurrentBind = errors.New("socket handle already bound to a completion dispatcher")

	// ErrAlreadyBound is the sentinel a Dispatcher implementation returns
	// (or wraps) from Bind when the raw handle is already registered with
	// the completion mechanism.
	ErrAlreadyBound = errors.New("raw handle already registered with completion dispatcher")

	// ErrBindingDisposed is returned by Binding.Begin after the binding has
	// been disposed. Reading operation records issued before disposal
	// remains legal.
	ErrBindingDisposed = errors.New("completion binding disposed")

	// ErrOperationAborted is the error recorded on every operation that was
	// still pending when its binding was disposed during handle teardown.
	ErrOperationAborted = errors.New("operation aborted by handle teardown")
)

// PlatformError is the error form of a failed platform call. Code carries the
// classified result and Errno the last recorded OS error, when the platform
// layer captured one.
type PlatformError struct {
	Code  Code
	Errno error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Errno != nil {
		return fmt.Sprintf("platform call failed: %s (%v)", e.Code, e.Errno)
	}

	return fmt.Sprintf("platform call failed: %s", e.Code)
}

// Unwrap returns the underlying OS error, if any, so that callers can match
// it with errors.Is and errors.As.
func (e *PlatformError) Unwrap() error {
	return e.Errno
}
