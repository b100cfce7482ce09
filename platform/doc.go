// Package platform provides OS-backed implementations of the
// sockethandle.Platform boundary, built on golang.org/x/sys. New returns the
// implementation for the current operating system; each platform call
// classifies the OS error it observed into a sockethandle.Result.
package platform
