// File: reactor/conn.go
// Author: momentics <momentics@gmail.com>
//
// Per-socket state owned by exactly one shard.

package reactor

import (
	"sync/atomic"
	"time"
)

// Conn is the state of one admitted socket. Apart from the removal flag it is
// only touched by the owning shard, so handlers may use it without locking.
type Conn struct {
	fd       int
	threadID int
	slot     uint32
	gen      uint32

	rbuf []byte
	rlen int // filled bytes of rbuf

	wbuf  []byte
	wlen  int // staged bytes of wbuf
	wsent int // flushed prefix of the staged bytes

	writeInterest bool
	readStalled   bool // read loop stopped on a full buffer
	openedAt      time.Time
	lastActive    time.Time
	bytesIn       uint64
	bytesOut      uint64

	removed atomic.Bool
	handler Handler
	ctx     any
}

// Fd returns the socket descriptor. It is closed once the connection is.
func (c *Conn) Fd() int { return c.fd }

// ThreadID returns the index of the owning shard.
func (c *Conn) ThreadID() int { return c.threadID }

// Buffered returns the number of read bytes not yet consumed by the handler.
func (c *Conn) Buffered() int { return c.rlen }

// Pending returns staged bytes not yet written to the socket.
func (c *Conn) Pending() int { return c.wlen - c.wsent }

// Available returns how many more bytes Stage can accept.
func (c *Conn) Available() int { return len(c.wbuf) - c.wlen }

// Stage appends p to the write buffer and returns how many bytes fit.
func (c *Conn) Stage(p []byte) int {
	n := copy(c.wbuf[c.wlen:], p)
	c.wlen += n
	return n
}

// LastActive returns the time of the last readiness event or admission.
func (c *Conn) LastActive() time.Time { return c.lastActive }

// OpenedAt returns the admission time.
func (c *Conn) OpenedAt() time.Time { return c.openedAt }

// BytesRead returns the lifetime count of bytes read from the socket.
func (c *Conn) BytesRead() uint64 { return c.bytesIn }

// BytesWritten returns the lifetime count of bytes written to the socket.
func (c *Conn) BytesWritten() uint64 { return c.bytesOut }

// Context returns the value stored with SetContext.
func (c *Conn) Context() any { return c.ctx }

// SetContext stores per-connection protocol state.
func (c *Conn) SetContext(v any) { c.ctx = v }

// Closed reports whether the connection has been destroyed.
func (c *Conn) Closed() bool { return c.removed.Load() }

// markRemoved flips the removal flag and reports whether this call did it.
func (c *Conn) markRemoved() bool {
	return !c.removed.Swap(true)
}

// consume drops the first n bytes of the read buffer.
func (c *Conn) consume(n int) {
	if n <= 0 {
		return
	}
	if n >= c.rlen {
		c.rlen = 0
		return
	}
	copy(c.rbuf, c.rbuf[n:c.rlen])
	c.rlen -= n
}

// reset clears every field before the Conn goes back to the pool.
func (c *Conn) reset() {
	c.fd = -1
	c.threadID = 0
	c.slot, c.gen = 0, 0
	c.rbuf, c.rlen = nil, 0
	c.wbuf, c.wlen, c.wsent = nil, 0, 0
	c.writeInterest, c.readStalled = false, false
	c.openedAt, c.lastActive = time.Time{}, time.Time{}
	c.bytesIn, c.bytesOut = 0, 0
	c.removed.Store(false)
	c.handler = nil
	c.ctx = nil
}
