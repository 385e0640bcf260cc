//go:build !linux
// +build !linux

// hioload-reactor/internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// CPU pinning fallback for platforms without sched_setaffinity.

package concurrency

import (
	"runtime"

	"github.com/momentics/hioload-reactor/api"
)

// PinCurrentThread locks the goroutine to its OS thread; affinity is unsupported here.
func PinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	return api.ErrNotSupported
}

// UnpinCurrentThread is a no-op on this platform.
func UnpinCurrentThread() error {
	return nil
}
