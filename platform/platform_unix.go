//go:build unix

package platform

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/cyberinferno/socket-utils/sockethandle"
)

// sysPlatform implements sockethandle.Platform with direct system calls.
type sysPlatform struct{}

// New returns the platform socket layer for the current operating system.
//
// Returns:
//   - A sockethandle.Platform backed by golang.org/x/sys
func New() sockethandle.Platform {
	return sysPlatform{}
}

// Close implements sockethandle.Platform.
func (sysPlatform) Close(raw uintptr) sockethandle.Result {
	return translate(unix.Close(int(raw)))
}

// SetBlockingMode implements sockethandle.Platform.
func (sysPlatform) SetBlockingMode(raw uintptr, blocking bool) sockethandle.Result {
	return translate(unix.SetNonblock(int(raw), !blocking))
}

// SetLinger implements sockethandle.Platform.
func (sysPlatform) SetLinger(raw uintptr, on bool, timeoutSeconds int) sockethandle.Result {
	l := unix.Linger{Linger: int32(timeoutSeconds)}
	if on {
		l.Onoff = 1
	}

	return translate(unix.SetsockoptLinger(int(raw), unix.SOL_SOCKET, unix.SO_LINGER, &l))
}

// CancelAllPendingIO implements sockethandle.Platform. Unix has no per-handle
// mass-cancel primitive; readiness-based dispatchers drop their registration
// when the descriptor closes, so no request is issued.
func (sysPlatform) CancelAllPendingIO(raw uintptr) bool {
	return false
}

// translate classifies a system call error into a sockethandle.Result,
// recording the concrete errno in place of the generic failure.
func translate(err error) sockethandle.Result {
	if err == nil {
		return sockethandle.Result{Code: sockethandle.CodeSuccess}
	}

	var errno unix.Errno
	if !errors.As(err, &errno) {
		return sockethandle.Result{Code: sockethandle.CodeOther, Errno: err}
	}

	// EWOULDBLOCK aliases EAGAIN on most platforms; checked separately so
	// the distinction survives where they differ.
	if errno == unix.EAGAIN || errno == unix.EWOULDBLOCK {
		return sockethandle.Result{Code: sockethandle.CodeWouldBlock, Errno: errno}
	}

	switch errno {
	case unix.EINVAL:
		return sockethandle.Result{Code: sockethandle.CodeInvalidArgument, Errno: errno}
	case unix.ENOPROTOOPT, unix.EOPNOTSUPP:
		return sockethandle.Result{Code: sockethandle.CodeUnsupportedOption, Errno: errno}
	default:
		return sockethandle.Result{Code: sockethandle.CodeOther, Errno: errno}
	}
}
