package sockethandle

import (
	"runtime"

	"github.com/cyberinferno/socket-utils/logger"
)

// Close releases the handle gracefully. Pending asynchronous operations are
// cancelled, the completion binding is disposed, and, for an owned handle,
// the native close sequence runs. When pending operations had to be forcibly
// cancelled the native close is abortive regardless, since the stream state
// is no longer consistent.
//
// Close is idempotent; only the first call performs teardown. It never
// blocks unboundedly: a graceful close that would block retries once in
// blocking mode and then falls back to an abortive close.
//
// Returns:
//   - nil, or a *PlatformError if the native close sequence failed
func (h *SocketHandle) Close() error {
	return h.close(false)
}

// CloseAbortive releases the handle with a reset-style close: linger is
// forced on with a zero timeout so the peer observes a connection reset.
// Otherwise identical to Close, including idempotence.
//
// Returns:
//   - nil, or a *PlatformError if the native close sequence failed
func (h *SocketHandle) CloseAbortive() error {
	return h.close(true)
}

func (h *SocketHandle) close(abortive bool) error {
	// Mark the handle released before taking the lock so a binder that is
	// mid-registration observes the teardown when classifying its error.
	h.released.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.teardownLocked(abortive).Err()
}

// finalize is the runtime finalizer installed by New. It runs the same
// teardown as Close; failures are logged since there is no caller to report
// them to.
func (h *SocketHandle) finalize() {
	if err := h.Close(); err != nil {
		h.log.Warn("finalizer teardown failed", logger.Field{Key: "error", Value: err})
	}
}

// teardownLocked runs the release sequence once. The caller must hold h.mu.
// Later calls observe a non-Open state and return success immediately.
//
// Teardown never panics and never returns an error for anything past the
// point release began; the native close outcome is the returned status.
func (h *SocketHandle) teardownLocked(abortive bool) Result {
	if LifecycleState(h.state.Load()) != StateOpen {
		return Result{Code: CodeSuccess}
	}

	h.released.Store(true)
	h.state.Store(int32(StateClosing))

	if h.beginCloseLocked() {
		abortive = true
	}

	res := Result{Code: CodeSuccess}
	if h.cfg.OwnsHandle {
		res = h.closeNative(abortive)
		if !res.Ok() {
			h.log.Warn("native close failed",
				logger.Field{Key: "code", Value: res.Code.String()},
				logger.Field{Key: "errno", Value: res.Errno},
				logger.Field{Key: "abortive", Value: abortive})
		}
	}

	if h.cfg.StaleGuard != nil {
		h.cfg.StaleGuard.MarkReleased(h.raw)
	}

	h.state.Store(int32(StateReleased))
	runtime.SetFinalizer(h, nil)
	return res
}

// beginCloseLocked cancels outstanding asynchronous operations and disposes
// the completion binding. For an owned handle the binding's own disposal
// aborts in-flight operations; a non-owned handle cannot rely on that, so the
// platform's explicit mass-cancel is issued first.
//
// Returns whether pending operations were forcibly cancelled, which the
// caller uses to decide on an abortive native close.
func (h *SocketHandle) beginCloseLocked() bool {
	b := h.binding.Load()
	if b == nil {
		return false
	}

	if !h.cfg.OwnsHandle || h.cfg.AlwaysExplicitCancel {
		if h.cfg.Platform.CancelAllPendingIO(h.raw) {
			h.log.Debug("issued explicit cancel for pending operations")
		}
	}

	return b.Dispose()
}

// closeNative runs the ordered native close sequence.
//
// Graceful: issue the platform close. WouldBlock means the handle is
// non-blocking with a linger timeout configured, so the close cannot finish
// synchronously; switch the handle to blocking mode and retry exactly once.
// A second WouldBlock falls through to the abortive path rather than
// looping. Any other first or second result is final.
//
// Abortive: set linger on with a zero timeout to force a reset-style close.
// If that fails with anything other than success, invalid-argument, or
// unsupported-option the close is not issued, since its blocking behavior
// would be unknown; otherwise the close result is returned as is.
func (h *SocketHandle) closeNative(abortive bool) Result {
	p := h.cfg.Platform

	if !abortive {
		res := p.Close(h.raw)
		if res.Code != CodeWouldBlock {
			return res
		}

		if mode := p.SetBlockingMode(h.raw, true); mode.Ok() {
			res = p.Close(h.raw)
			if res.Code != CodeWouldBlock {
				return res
			}
		}
	}

	linger := p.SetLinger(h.raw, true, 0)
	switch linger.Code {
	case CodeSuccess, CodeInvalidArgument, CodeUnsupportedOption:
	default:
		return linger
	}

	return p.Close(h.raw)
}
