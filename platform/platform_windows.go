//go:build windows

package platform

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/cyberinferno/socket-utils/sockethandle"
)

// sysPlatform implements sockethandle.Platform with Winsock calls.
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
	return translate(windows.Closesocket(windows.Handle(raw)))
}

// SetBlockingMode implements sockethandle.Platform. FIONBIO with a zero
// argument returns the socket to blocking mode.
func (sysPlatform) SetBlockingMode(raw uintptr, blocking bool) sockethandle.Result {
	mode := uint32(1)
	if blocking {
		mode = 0
	}

	var returned uint32
	err := windows.WSAIoctl(windows.Handle(raw), windows.FIONBIO,
		(*byte)(unsafe.Pointer(&mode)), uint32(unsafe.Sizeof(mode)),
		nil, 0, &returned, nil, 0)
	return translate(err)
}

// SetLinger implements sockethandle.Platform.
func (sysPlatform) SetLinger(raw uintptr, on bool, timeoutSeconds int) sockethandle.Result {
	l := windows.Linger{Linger: int32(timeoutSeconds)}
	if on {
		l.Onoff = 1
	}

	return translate(windows.SetsockoptLinger(windows.Handle(raw), windows.SOL_SOCKET, windows.SO_LINGER, &l))
}

// CancelAllPendingIO implements sockethandle.Platform.
func (sysPlatform) CancelAllPendingIO(raw uintptr) bool {
	return windows.CancelIoEx(windows.Handle(raw), nil) == nil
}

// translate classifies a Winsock error into a sockethandle.Result, recording
// the concrete error code in place of the generic failure.
func translate(err error) sockethandle.Result {
	if err == nil {
		return sockethandle.Result{Code: sockethandle.CodeSuccess}
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return sockethandle.Result{Code: sockethandle.CodeOther, Errno: err}
	}

	switch errno {
	case windows.WSAEWOULDBLOCK:
		return sockethandle.Result{Code: sockethandle.CodeWouldBlock, Errno: errno}
	case windows.WSAEINVAL, windows.ERROR_INVALID_PARAMETER:
		return sockethandle.Result{Code: sockethandle.CodeInvalidArgument, Errno: errno}
	case windows.WSAENOPROTOOPT, windows.WSAEOPNOTSUPP:
		return sockethandle.Result{Code: sockethandle.CodeUnsupportedOption, Errno: errno}
	default:
		return sockethandle.Result{Code: sockethandle.CodeOther, Errno: errno}
	}
}
