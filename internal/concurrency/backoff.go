// File: internal/concurrency/backoff.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adaptive idle backoff for poll loops that found no work.

package concurrency

import (
	"runtime"
	"time"
)

const (
	backoffYieldLimit = 16
	backoffMaxSleep   = 100 * time.Microsecond
)

// Backoff escalates from scheduler yields to short sleeps while a loop stays
// idle. It is owned by a single goroutine and needs no synchronization.
type Backoff struct {
	idle  int
	sleep time.Duration
}

// Idle records an iteration without work and yields accordingly.
func (b *Backoff) Idle() {
	b.idle++
	if b.idle < backoffYieldLimit {
		runtime.Gosched()
		return
	}
	if b.sleep == 0 {
		b.sleep = time.Microsecond
	}
	time.Sleep(b.sleep)
	b.sleep *= 2
	if b.sleep > backoffMaxSleep {
		b.sleep = backoffMaxSleep
	}
}

// Reset returns to the cheapest yield after an iteration that did work.
func (b *Backoff) Reset() {
	b.idle = 0
	b.sleep = 0
}

// Idling reports how many consecutive idle iterations were recorded.
func (b *Backoff) Idling() int {
	return b.idle
}
