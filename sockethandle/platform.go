package sockethandle

// Code classifies the outcome of a raw platform socket call.
type Code int

const (
	CodeSuccess           Code = iota // The call completed successfully
	CodeWouldBlock                    // The call cannot complete without blocking
	CodeInvalidArgument               // The handle or an option value was rejected
	CodeUnsupportedOption             // The option is not supported for this handle
	CodeOther                         // Any other OS failure; Result.Errno carries the code
)

// String returns a human-readable name for the result code.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "Success"
	case CodeWouldBlock:
		return "WouldBlock"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeUnsupportedOption:
		return "UnsupportedOption"
	case CodeOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a platform socket call: a classified code plus the
// last recorded OS error for codes other than CodeSuccess. Platform
// implementations translate their generic error sentinel into the concrete
// OS error before returning.
type Result struct {
	Code  Code
	Errno error
}

// Ok reports whether the call completed successfully.
func (r Result) Ok() bool {
	return r.Code == CodeSuccess
}

// Err converts the result into an error. A successful result converts to nil;
// anything else converts to a *PlatformError carrying the code and OS error.
//
// Returns:
//   - nil if the result is CodeSuccess, otherwise a *PlatformError
func (r Result) Err() error {
	if r.Code == CodeSuccess {
		return nil
	}

	return &PlatformError{Code: r.Code, Errno: r.Errno}
}

// Platform is the boundary with the raw platform socket layer. Implementations
// wrap the OS calls needed by the close sequence; see the platform package for
// OS-backed implementations.
type Platform interface {
	// Close releases the raw handle with the platform close call.
	//
	// Parameters:
	//   - raw: The native handle value
	//
	// Returns:
	//   - The classified outcome of the close call
	Close(raw uintptr) Result

	// SetBlockingMode switches the raw handle between blocking and
	// non-blocking mode.
	//
	// Parameters:
	//   - raw: The native handle value
	//   - blocking: true for blocking mode, false for non-blocking
	//
	// Returns:
	//   - The classified outcome of the mode change
	SetBlockingMode(raw uintptr, blocking bool) Result

	// SetLinger sets the linger option on the raw handle. Linger on with a
	// zero timeout forces a reset-style close.
	//
	// Parameters:
	//   - raw: The native handle value
	//   - on: Whether linger is enabled
	//   - timeoutSeconds: The linger timeout in seconds
	//
	// Returns:
	//   - The classified outcome of the option change
	SetLinger(raw uintptr, on bool, timeoutSeconds int) Result

	// CancelAllPendingIO cancels every asynchronous operation pending on
	// the raw handle. It is the explicit mass-cancel used when the handle
	// state does not own the native resource.
	//
	// Parameters:
	//   - raw: The native handle value
	//
	// Returns:
	//   - true if a cancellation request was issued, false if the platform
	//     has no explicit cancel primitive
	CancelAllPendingIO(raw uintptr) bool
}

// Dispatcher is the boundary with the external completion dispatcher that
// delivers asynchronous I/O completion notifications for registered handles.
type Dispatcher interface {
	// Bind registers a raw handle for completion notifications. A handle
	// may be registered at most once; an attempt to register an already
	// registered handle fails with an error matching ErrAlreadyBound.
	//
	// Parameters:
	//   - raw: The native handle value
	//
	// Returns:
	//   - The dispatcher's registration record, or an error
	Bind(raw uintptr) (DispatcherBinding, error)

	// TrySkipSyncNotification asks the dispatcher not to post a completion
	// notification for operations that complete synchronously on the given
	// registration. Best effort.
	//
	// Parameters:
	//   - binding: The registration record returned by Bind
	//
	// Returns:
	//   - true if the optimization is in effect for this registration
	TrySkipSyncNotification(binding DispatcherBinding) bool
}

// DispatcherBinding is the registration record produced by Dispatcher.Bind.
type DispatcherBinding interface {
	// Dispose releases the registration and aborts any operation still
	// pending under it. It is safe to call more than once.
	Dispose()
}
