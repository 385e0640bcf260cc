// Package api
// Author: momentics@gmail.com
//
// Lock-free ring buffer for cross-thread producer/consumer.

package api

// Ring is a lock-free ring buffer contract.
type Ring[T any] interface {
	// Push adds an item, returns false if full.
	Push(item T) bool
	// Pop removes oldest item, returns false if empty.
	Pop() (T, bool)
	// Size returns current number of items.
	Size() uint32
	// Cap returns buffer capacity.
	Cap() int
}

// BatchRing extends Ring with all-or-nothing batched transfers.
type BatchRing[T any] interface {
	Ring[T]

	// PushBatch enqueues a prefix of items and returns its length.
	// Zero means the queue was full or another producer won the race.
	PushBatch(items []T) int

	// PopBatch fills out with up to len(out) items and returns the count.
	PopBatch(out []T) int
}

// RingStats are the lifetime counters of a ring.
type RingStats struct {
	Pushed       uint64
	Popped       uint64
	PushFailures uint64
}
