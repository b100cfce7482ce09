// Package sockethandle manages the lifecycle of a native socket handle that
// is registered with an OS-level asynchronous completion mechanism and
// accessed concurrently by caller threads and completion callbacks.
//
// A SocketHandle guarantees that the underlying handle is closed exactly
// once, that outstanding asynchronous operations are cancelled before the
// handle is invalidated, and that the close itself follows an ordered
// graceful-then-abortive fallback so it never blocks unboundedly, even when
// triggered from a finalizer.
package sockethandle

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/socket-utils/logger"
	"github.com/cyberinferno/socket-utils/staleguard"
)

// Config holds configuration for a SocketHandle.
type Config struct {
	// Dispatcher is the completion dispatcher the handle registers with on
	// first asynchronous use. Required.
	Dispatcher Dispatcher
	// Platform is the raw platform socket layer used by the close
	// sequence. Required.
	Platform Platform
	// Logger receives teardown diagnostics. The no-op logger is used when
	// nil.
	Logger logger.Logger
	// OwnsHandle states whether this handle state is responsible for
	// releasing the native resource. When false, teardown cancels pending
	// operations explicitly and skips the native close.
	OwnsHandle bool
	// Finalizer installs a runtime finalizer that tears the handle down if
	// the owner never called Close. Only effective when OwnsHandle is true.
	Finalizer bool
	// AlwaysExplicitCancel issues the platform's explicit mass-cancel even
	// for owned handles, for platforms that do not guarantee cancellation
	// of in-flight operations on close.
	AlwaysExplicitCancel bool
	// StaleGuard, when set, is notified of released raw handle values so
	// completion delivery can drop events for recycled handles.
	StaleGuard *staleguard.Guard
}

// DefaultConfig returns a Config for an owned handle with a finalizer
// installed and no log output.
//
// Parameters:
//   - dispatcher: The completion dispatcher to register with
//   - platform: The raw platform socket layer
//
// Returns:
//   - A Config with OwnsHandle and Finalizer enabled
func DefaultConfig(dispatcher Dispatcher, platform Platform) Config {
	return Config{
		Dispatcher: dispatcher,
		Platform:   platform,
		Logger:     logger.Nop(),
		OwnsHandle: true,
		Finalizer:  true,
	}
}

// SocketHandle is the lifecycle state of one native socket handle. It is safe
// for concurrent use: any number of goroutines may bind, issue operations,
// and close, with the documented once-only semantics.
type SocketHandle struct {
	raw uintptr // immutable until Released
	cfg Config
	log logger.Logger

	// mu serializes first-time binding creation and teardown initiation.
	mu       sync.Mutex
	released atomic.Bool
	state    atomic.Int32
	binding  atomic.Pointer[Binding]
}

// New creates the lifecycle state for a raw native handle. When the config
// enables it, a runtime finalizer is installed so an abandoned handle is
// still torn down.
//
// Parameters:
//   - raw: The native handle value
//   - cfg: The handle configuration; Dispatcher and Platform are required
//
// Returns:
//   - The new SocketHandle, or an error if the config is incomplete
func New(raw uintptr, cfg Config) (*SocketHandle, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("sockethandle: config requires a Dispatcher")
	}
	if cfg.Platform == nil {
		return nil, fmt.Errorf("sockethandle: config requires a Platform")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	h := &SocketHandle{
		raw: raw,
		cfg: cfg,
		log: log.With(logger.Field{Key: "raw", Value: raw}),
	}
	h.state.Store(int32(StateOpen))

	if cfg.OwnsHandle && cfg.Finalizer {
		runtime.SetFinalizer(h, (*SocketHandle).finalize)
	}

	return h, nil
}

// Raw returns the native handle value. It fails once release has begun;
// callers must not retain the value past the handle's lifetime.
//
// Returns:
//   - The native handle value, or ErrHandleDisposed after release began
func (h *SocketHandle) Raw() (uintptr, error) {
	if h.released.Load() {
		return 0, ErrHandleDisposed
	}

	return h.raw, nil
}

// OwnsHandle reports whether this state is responsible for releasing the
// native resource.
func (h *SocketHandle) OwnsHandle() bool {
	return h.cfg.OwnsHandle
}

// State returns the handle's current lifecycle state.
func (h *SocketHandle) State() LifecycleState {
	return LifecycleState(h.state.Load())
}

// Released reports whether teardown has begun.
func (h *SocketHandle) Released() bool {
	return h.released.Load()
}

// Binding returns the handle's completion binding, if one has been created.
// Once any goroutine observes a non-nil binding it observes it fully
// configured.
//
// Returns:
//   - The binding and true, or nil and false if the handle was never bound
func (h *SocketHandle) Binding() (*Binding, bool) {
	b := h.binding.Load()
	return b, b != nil
}

// BindIfAbsent associates the handle with the completion dispatcher, at most
// once. The first asynchronous operation on a handle calls this; later calls
// return the existing binding without contacting the dispatcher.
//
// When the dispatcher rejects the registration, the handle is torn down with
// a non-abortive close before the error is reported: a handle that cannot
// deliver completions is unusable. A registration race with concurrent
// teardown is reported as ErrHandleDisposed; a second registration of a
// handle that is open and already bound is reported as ErrConcurrentBind.
// All other dispatcher errors pass through unchanged.
//
// Parameters:
//   - skipNotificationRequested: Ask the dispatcher to suppress completion
//     notifications for synchronously completing operations
//
// Returns:
//   - The handle's completion binding, or an error
func (h *SocketHandle) BindIfAbsent(skipNotificationRequested bool) (*Binding, error) {
	if h.released.Load() {
		return nil, ErrHandleDisposed
	}

	if b := h.binding.Load(); b != nil {
		return b, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released.Load() {
		return nil, ErrHandleDisposed
	}

	// Another goroutine may have completed binding while this one waited
	// for the lock.
	if b := h.binding.Load(); b != nil {
		return b, nil
	}

	inner, err := h.cfg.Dispatcher.Bind(h.raw)
	if err != nil {
		wasReleased := h.released.Load()
		h.teardownLocked(false)

		switch {
		case wasReleased:
			return nil, fmt.Errorf("%w: %v", ErrHandleDisposed, err)
		case errors.Is(err, ErrAlreadyBound):
			return nil, fmt.Errorf("%w: %v", ErrConcurrentBind, err)
		}

		return nil, err
	}

	b := newBinding(inner, h.log)
	if skipNotificationRequested && h.cfg.Dispatcher.TrySkipSyncNotification(inner) {
		b.skipSyncNotify = true
	}

	// Publish only after the binding is fully configured.
	h.binding.Store(b)
	return b, nil
}
