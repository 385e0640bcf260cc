// File: internal/concurrency/ring.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingQueue is a bounded multi-producer/multi-consumer circular buffer.
// Positions are claimed by CAS on head/tail; every slot carries a sequence
// stamp so a claimed position only becomes visible to the other side once
// its value has been written (acquire/release pair on seq).

package concurrency

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/momentics/hioload-reactor/api"
)

// Ensure compile-time interface compliance.
var _ api.BatchRing[int] = (*RingQueue[int])(nil)

// MaxRingCapacity bounds capacity well below the 2^32 index space.
const MaxRingCapacity = 1 << 30

// ringSlot holds one value and its publication stamp.
//
//	seq == pos     free for the producer that claimed pos
//	seq == pos+1   published, readable by the consumer that claims pos
type ringSlot[T any] struct {
	seq   atomic.Uint32
	value T
}

// RingQueue is a lock-free ring queue (multi-producer, multi-consumer safe).
type RingQueue[T any] struct {
	_    [64]byte // Padding for hot/cold separation
	head atomic.Uint32
	_    [60]byte
	tail atomic.Uint32
	_    [60]byte // Padding to separate tail from other data

	slots []ringSlot[T]
	mask  uint32
	size  uint32

	pushed       atomic.Uint64
	popped       atomic.Uint64
	pushFailures atomic.Uint64
}

// NewRingQueue allocates a ring queue. capacity must be a power of two >= 2.
func NewRingQueue[T any](capacity int) (*RingQueue[T], error) {
	if capacity < 2 || capacity > MaxRingCapacity || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring capacity %d must be a power of two in [2, %d]: %w",
			capacity, MaxRingCapacity, api.ErrInvalidArgument)
	}
	q := &RingQueue[T]{
		slots: make([]ringSlot[T], capacity),
		mask:  uint32(capacity - 1),
		size:  uint32(capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint32(i))
	}
	return q, nil
}

// Push adds item; returns false if full.
func (q *RingQueue[T]) Push(item T) bool {
	for {
		// head first: the later tail load can then never be behind it.
		head := q.head.Load()
		tail := q.tail.Load()
		if tail-head >= q.size {
			if q.head.Load() != head {
				continue
			}
			q.pushFailures.Add(1)
			return false
		}
		if q.tail.CompareAndSwap(tail, tail+1) {
			q.publish(&q.slots[tail&q.mask], tail, item)
			q.pushed.Add(1)
			return true
		}
	}
}

// PushBatch claims room for as many items as fit in one CAS and copies them in.
// A lost CAS transfers nothing; the caller decides whether to retry.
func (q *RingQueue[T]) PushBatch(items []T) int {
	if len(items) == 0 {
		return 0
	}
	head := q.head.Load()
	tail := q.tail.Load()
	used := tail - head
	var free uint32
	if used < q.size {
		free = q.size - used
	}
	k := min(uint32(min(len(items), MaxRingCapacity)), free)
	if k == 0 {
		q.pushFailures.Add(1)
		return 0
	}
	if !q.tail.CompareAndSwap(tail, tail+k) {
		return 0
	}
	start := tail & q.mask
	first := min(k, q.size-start)
	q.fill(q.slots[start:start+first], tail, items[:first])
	q.fill(q.slots[:k-first], tail+first, items[first:k])
	q.pushed.Add(uint64(k))
	return int(k)
}

// Pop removes and returns the oldest item; ok false if empty.
func (q *RingQueue[T]) Pop() (T, bool) {
	var out [1]T
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if head == tail {
			return out[0], false
		}
		idx := head & q.mask
		if q.slots[idx].seq.Load() != head+1 {
			// Claimed by a producer that has not published yet.
			return out[0], false
		}
		if q.head.CompareAndSwap(head, head+1) {
			q.drain(out[:], q.slots[idx:idx+1], head)
			q.popped.Add(1)
			return out[0], true
		}
	}
}

// PopBatch moves up to len(out) published items into out and returns the count.
// A lost CAS transfers nothing.
func (q *RingQueue[T]) PopBatch(out []T) int {
	if len(out) == 0 {
		return 0
	}
	head := q.head.Load()
	tail := q.tail.Load()
	limit := min(uint32(min(len(out), MaxRingCapacity)), tail-head, q.size)
	var k uint32
	for k < limit && q.slots[(head+k)&q.mask].seq.Load() == head+k+1 {
		k++
	}
	if k == 0 {
		return 0
	}
	if !q.head.CompareAndSwap(head, head+k) {
		return 0
	}
	start := head & q.mask
	first := min(k, q.size-start)
	q.drain(out[:first], q.slots[start:start+first], head)
	q.drain(out[first:k], q.slots[:k-first], head+first)
	q.popped.Add(uint64(k))
	return int(k)
}

// fill writes items into claimed slots starting at position pos.
func (q *RingQueue[T]) fill(slots []ringSlot[T], pos uint32, items []T) {
	for i := range slots {
		q.publish(&slots[i], pos+uint32(i), items[i])
	}
}

// publish stores v into the slot claimed for pos and makes it visible.
func (q *RingQueue[T]) publish(s *ringSlot[T], pos uint32, v T) {
	// The consumer of the previous lap may still be copying out.
	for s.seq.Load() != pos {
		runtime.Gosched()
	}
	s.value = v
	s.seq.Store(pos + 1)
}

// drain copies claimed slots starting at position pos into dst and frees them.
func (q *RingQueue[T]) drain(dst []T, slots []ringSlot[T], pos uint32) {
	var zero T
	for i := range slots {
		s := &slots[i]
		dst[i] = s.value
		s.value = zero
		s.seq.Store(pos + uint32(i) + q.size)
	}
}

// Size returns number of items currently in buffer.
func (q *RingQueue[T]) Size() uint32 {
	head := q.head.Load()
	tail := q.tail.Load()
	return min(tail-head, q.size)
}

// Cap returns fixed buffer capacity.
func (q *RingQueue[T]) Cap() int {
	return int(q.size)
}

// IsEmpty reports whether no items are queued.
func (q *RingQueue[T]) IsEmpty() bool {
	return q.Size() == 0
}

// IsFull reports whether the next Push would be rejected.
func (q *RingQueue[T]) IsFull() bool {
	return q.Size() >= q.size
}

// Stats returns the lifetime push/pop counters.
func (q *RingQueue[T]) Stats() api.RingStats {
	return api.RingStats{
		Pushed:       q.pushed.Load(),
		Popped:       q.popped.Load(),
		PushFailures: q.pushFailures.Load(),
	}
}
