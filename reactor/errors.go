// File: reactor/errors.go
// Author: momentics <momentics@gmail.com>

package reactor

import "errors"

var (
	// ErrNotRunning is returned by AddConnection before Run or after Stop.
	ErrNotRunning = errors.New("reactor: not running")
	// ErrAlreadyRunning is returned by Run on a running reactor.
	ErrAlreadyRunning = errors.New("reactor: already running")
	// ErrAlreadyStopped is returned by Stop on a reactor that is not running.
	ErrAlreadyStopped = errors.New("reactor: already stopped")
	// ErrDestroyed is returned by Run after Destroy.
	ErrDestroyed = errors.New("reactor: destroyed")
	// ErrQueueFull marks admission load shedding; the caller still owns the fd.
	ErrQueueFull = errors.New("reactor: admission queue full")

	errSlotsExhausted = errors.New("reactor: connection slots exhausted")
	errPollError      = errors.New("reactor: poller reported error condition")
)
