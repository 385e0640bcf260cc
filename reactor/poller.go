// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
//
// Readiness notification abstraction used by a shard.

package reactor

import "time"

type eventFlags uint8

const (
	evRead eventFlags = 1 << iota
	evWrite
	evError
	evHangup
)

type interest uint8

const (
	interestRead interest = iota
	interestWrite
)

// readyEvent carries the slot tag registered with the fd.
type readyEvent struct {
	slot  uint32
	gen   uint32
	flags eventFlags
}

// poller is an edge-triggered readiness source owned by one shard.
type poller interface {
	add(fd int, slot, gen uint32, in interest) error
	modify(fd int, slot, gen uint32, in interest) error
	remove(fd int) error
	// wait blocks for at most timeout and returns the number of events written
	// into out. An interrupted wait returns 0 and no error.
	wait(out []readyEvent, timeout time.Duration) (int, error)
	close() error
}
