// File: reactor/thread.go
// Author: momentics <momentics@gmail.com>
//
// Shard event loop: admission, readiness wait, read/write phases, idle sweep.

package reactor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/momentics/hioload-reactor/pool"
)

// pinThread binds the calling goroutine's OS thread to a CPU.
var pinThread = concurrency.PinCurrentThread

// Thread is one reactor shard. It owns a poller, a slot table and an
// admission queue; everything except the queue and the counters is touched
// only by the shard goroutine.
type Thread struct {
	id      int
	cfg     *Config
	poller  poller
	slots   *slotTable
	queue   *concurrency.RingQueue[int]
	running atomic.Bool
	log     *zap.Logger

	bufs     *pool.BytePool
	connPool *pool.SyncPool[*Conn]

	events   []readyEvent
	readable []*Conn
	writable []*Conn
	admitBuf []int
	retired  []*Conn
	backoff  concurrency.Backoff

	iterations uint64
	now        time.Time

	totalConns    atomic.Uint64
	activeConns   atomic.Int64
	eventsSeen    atomic.Uint64
	batches       atomic.Uint64
	admitFailures atomic.Uint64
	timeouts      atomic.Uint64
	bytesRead     atomic.Uint64
	bytesWritten  atomic.Uint64
}

func newThread(id int, cfg *Config) (*Thread, error) {
	q, err := concurrency.NewRingQueue[int](cfg.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, err)
	}
	p, err := newPoller(cfg.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, err)
	}
	t := &Thread{
		id:       id,
		cfg:      cfg,
		poller:   p,
		slots:    newSlotTable(cfg.MaxConnsPerThread),
		queue:    q,
		log:      cfg.Logger.With(zap.Int("thread", id)),
		bufs:     pool.NewBytePool(cfg.BufferSize),
		events:   make([]readyEvent, cfg.MaxEvents),
		admitBuf: make([]int, cfg.BatchSize),
		now:      time.Now(),
	}
	t.connPool = pool.NewSyncPool(func() *Conn { return &Conn{fd: -1} }, (*Conn).reset)
	return t, nil
}

// ID returns the shard index.
func (t *Thread) ID() int { return t.id }

// run is the shard goroutine. The startup result is sent on ready exactly once.
func (t *Thread) run(wg *sync.WaitGroup, ready chan<- error) {
	defer wg.Done()
	// Never unlocked: a pinned OS thread is retired with its goroutine.
	runtime.LockOSThread()
	if t.cfg.PinThreads {
		cpu := t.cfg.PinBaseCPU + t.id
		if err := pinThread(cpu); err != nil {
			if t.cfg.PinStrict {
				t.running.Store(false)
				ready <- fmt.Errorf("thread %d: pin to cpu %d: %w", t.id, cpu, err)
				return
			}
			t.log.Warn("cpu pinning failed", zap.Int("cpu", cpu), zap.Error(err))
		}
	}
	ready <- nil
	t.log.Info("reactor thread started")
	t.loop()
	t.log.Info("reactor thread stopped", zap.Uint64("iterations", t.iterations))
}

func (t *Thread) loop() {
	for t.running.Load() {
		t.iterations++
		admitted := t.admit()

		n, err := t.poller.wait(t.events, t.cfg.WaitTimeout)
		if err != nil {
			t.log.Error("poller wait failed, leaving loop", zap.Error(err))
			t.running.Store(false)
			return
		}
		t.now = time.Now()
		if n > 0 {
			t.eventsSeen.Add(uint64(n))
			t.dispatch(t.events[:n])
		}
		if t.iterations%uint64(t.cfg.SweepEvery) == 0 {
			t.sweep()
		}
		t.recycle()

		if admitted == 0 && n == 0 {
			t.backoff.Idle()
		} else {
			t.backoff.Reset()
		}
	}
}

// admit drains up to BatchSize fds from the admission queue.
func (t *Thread) admit() int {
	n := t.queue.PopBatch(t.admitBuf)
	if n == 0 {
		return 0
	}
	if n > 1 {
		t.batches.Add(1)
	}
	now := time.Now()
	for _, fd := range t.admitBuf[:n] {
		if err := t.attach(fd, now); err != nil {
			t.admitFailures.Add(1)
			_ = sysClose(fd)
			t.log.Warn("admission failed", zap.Int("fd", fd), zap.Error(err))
		}
	}
	return n
}

func (t *Thread) attach(fd int, now time.Time) error {
	slot, gen, ok := t.slots.alloc()
	if !ok {
		return errSlotsExhausted
	}
	if err := setNonblock(fd); err != nil {
		t.slots.release(slot)
		return fmt.Errorf("set nonblock: %w", err)
	}
	if err := t.poller.add(fd, slot, gen, interestRead); err != nil {
		t.slots.release(slot)
		return err
	}
	c := t.connPool.Get()
	c.fd = fd
	c.threadID = t.id
	c.slot, c.gen = slot, gen
	c.rbuf = t.bufs.GetBuffer()
	c.wbuf = t.bufs.GetBuffer()
	c.openedAt, c.lastActive = now, now
	c.handler = t.cfg.Handler
	t.slots.bind(slot, c)

	t.totalConns.Add(1)
	t.activeConns.Add(1)
	t.log.Debug("connection admitted", zap.Int("fd", fd), zap.Uint32("slot", slot))
	c.handler.OnOpen(c)
	if c.wlen > 0 {
		// Greeting staged by OnOpen.
		if err := t.poller.modify(fd, slot, gen, interestWrite); err != nil {
			t.closeConn(c, CloseError, err)
			return nil
		}
		c.writeInterest = true
	}
	return nil
}

// dispatch classifies events and runs the read phase before the write phase.
func (t *Thread) dispatch(events []readyEvent) {
	t.readable = t.readable[:0]
	t.writable = t.writable[:0]
	for _, ev := range events {
		c := t.slots.lookup(ev.slot, ev.gen)
		if c == nil || c.Closed() {
			continue
		}
		c.lastActive = t.now
		switch {
		case ev.flags&evError != 0:
			err := socketError(c.fd)
			if err == nil {
				err = errPollError
			}
			t.closeConn(c, CloseError, err)
			continue
		case ev.flags&evHangup != 0:
			t.closeConn(c, ClosePeer, nil)
			continue
		}
		if ev.flags&evRead != 0 {
			t.readable = append(t.readable, c)
		}
		if ev.flags&evWrite != 0 {
			t.writable = append(t.writable, c)
		}
	}
	for _, c := range t.readable {
		if !c.Closed() {
			t.handleRead(c)
		}
	}
	for _, c := range t.writable {
		if !c.Closed() && c.Pending() > 0 {
			t.handleWrite(c)
		}
	}
}

// handleRead drains the socket until it would block, the buffer is full or
// the peer is gone.
func (t *Thread) handleRead(c *Conn) {
	for c.rlen < len(c.rbuf) {
		n, err := sysRead(c.fd, c.rbuf[c.rlen:])
		switch {
		case err != nil && isInterrupted(err):
			continue
		case err != nil && isWouldBlock(err):
			return
		case err != nil:
			t.log.Debug("read failed", zap.Int("fd", c.fd), zap.Error(err))
			t.closeConn(c, CloseError, err)
			return
		case n == 0:
			t.closeConn(c, ClosePeer, nil)
			return
		}
		c.rlen += n
		c.bytesIn += uint64(n)
		t.bytesRead.Add(uint64(n))
		if !t.stage(c) {
			return
		}
	}
	c.readStalled = true
}

// stage offers the read backlog to the handler and arms write interest when
// a reply was staged. It returns false if the connection was closed.
func (t *Thread) stage(c *Conn) bool {
	if c.rlen == 0 {
		return true
	}
	before := c.wlen
	consumed := c.handler.OnData(c, c.rbuf[:c.rlen])
	c.consume(min(max(consumed, 0), c.rlen))
	if c.wlen > before && !c.writeInterest {
		if err := t.poller.modify(c.fd, c.slot, c.gen, interestWrite); err != nil {
			t.closeConn(c, CloseError, err)
			return false
		}
		c.writeInterest = true
	}
	return true
}

// handleWrite flushes staged bytes. After a full flush the read backlog is
// re-offered; new output is written in the same pass because no further
// edge will be reported for an already writable socket.
func (t *Thread) handleWrite(c *Conn) {
	for c.Pending() > 0 {
		n, err := sysWrite(c.fd, c.wbuf[c.wsent:c.wlen])
		switch {
		case err != nil && isInterrupted(err):
			continue
		case err != nil && isWouldBlock(err):
			return
		case err != nil:
			t.log.Debug("write failed", zap.Int("fd", c.fd), zap.Error(err))
			t.closeConn(c, CloseError, err)
			return
		}
		c.wsent += n
		c.bytesOut += uint64(n)
		t.bytesWritten.Add(uint64(n))
		if c.Pending() > 0 {
			continue
		}

		flushed := c.wlen
		c.wlen, c.wsent = 0, 0
		c.handler.OnFlushed(c, flushed)
		if !t.stage(c) {
			return
		}
		if c.readStalled && c.rlen < len(c.rbuf) {
			// The socket may still hold data that produced no new edge.
			c.readStalled = false
			t.handleRead(c)
			if c.Closed() {
				return
			}
		}
		if c.wlen == 0 {
			if err := t.poller.modify(c.fd, c.slot, c.gen, interestRead); err != nil {
				t.closeConn(c, CloseError, err)
				return
			}
			c.writeInterest = false
		}
	}
}

// sweep evicts connections idle strictly longer than IdleTimeout.
func (t *Thread) sweep() {
	limit := t.cfg.IdleTimeout
	t.slots.forEach(func(c *Conn) {
		if t.now.Sub(c.lastActive) > limit {
			t.timeouts.Add(1)
			t.closeConn(c, CloseTimeout, nil)
		}
	})
}

// closeConn destroys c once. The Conn stays readable until recycle runs at
// the end of the iteration.
func (t *Thread) closeConn(c *Conn, reason CloseReason, cause error) {
	if !c.markRemoved() {
		return
	}
	if err := t.poller.remove(c.fd); err != nil {
		t.log.Debug("poller remove failed", zap.Int("fd", c.fd), zap.Error(err))
	}
	_ = sysClose(c.fd)
	t.slots.release(c.slot)
	t.activeConns.Add(-1)
	t.log.Debug("connection closed",
		zap.Int("fd", c.fd),
		zap.Stringer("reason", reason),
		zap.Error(cause))
	c.handler.OnClose(c, reason, cause)
	t.retired = append(t.retired, c)
}

// recycle returns buffers and Conns closed during this iteration.
func (t *Thread) recycle() {
	for i, c := range t.retired {
		t.bufs.PutBuffer(c.rbuf)
		t.bufs.PutBuffer(c.wbuf)
		t.connPool.Put(c)
		t.retired[i] = nil
	}
	t.retired = t.retired[:0]
}

// teardown closes every live connection and every fd still queued for
// admission, then releases the poller. Must run after the loop has exited.
func (t *Thread) teardown() {
	t.now = time.Now()
	live := t.slots.len()
	t.slots.forEach(func(c *Conn) {
		t.closeConn(c, CloseShutdown, nil)
	})
	t.recycle()
	queued := 0
	for {
		fd, ok := t.queue.Pop()
		if !ok {
			break
		}
		_ = sysClose(fd)
		queued++
	}
	t.log.Info("reactor thread released",
		zap.Int("connections", live),
		zap.Int("queued_fds", queued))
	if err := t.poller.close(); err != nil {
		t.log.Warn("poller close failed", zap.Error(err))
	}
}

func (t *Thread) stats() ThreadStats {
	q := t.queue.Stats()
	return ThreadStats{
		ID:                t.id,
		Running:           t.running.Load(),
		TotalConnections:  t.totalConns.Load(),
		ActiveConnections: t.activeConns.Load(),
		EventsProcessed:   t.eventsSeen.Load(),
		BatchesProcessed:  t.batches.Load(),
		Admitted:          q.Pushed,
		QueueDepth:        t.queue.Size(),
		QueuePushFailures: q.PushFailures,
		AdmissionFailures: t.admitFailures.Load(),
		Timeouts:          t.timeouts.Load(),
		BytesRead:         t.bytesRead.Load(),
		BytesWritten:      t.bytesWritten.Load(),
		SlotCapacity:      t.slots.capacity(),
		BufferAllocs:      t.bufs.Allocs(),
	}
}
