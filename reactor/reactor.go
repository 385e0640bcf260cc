// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Reactor coordinator: shard lifecycle and round-robin admission.

package reactor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/hioload-reactor/api"
)

var _ api.GracefulShutdown = (*Reactor)(nil)

// Reactor distributes accepted sockets over a fixed set of shards. Run,
// Stop, Destroy and Shutdown are serialized; AddConnection and Stats may be
// called from any goroutine.
type Reactor struct {
	cfg     Config
	threads []*Thread
	log     *zap.Logger

	running  atomic.Bool
	cursor   atomic.Uint32
	inflight atomic.Int32 // AddConnection calls past the running check

	mu        sync.Mutex
	wg        sync.WaitGroup
	destroyed bool
}

// New validates cfg and allocates every shard's poller and admission queue.
func New(cfg Config) (*Reactor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reactor{
		cfg:     cfg,
		threads: make([]*Thread, 0, cfg.Threads),
		log:     cfg.Logger.Named("reactor"),
	}
	for i := 0; i < cfg.Threads; i++ {
		t, err := newThread(i, &r.cfg)
		if err != nil {
			for _, created := range r.threads {
				_ = created.poller.close()
			}
			return nil, err
		}
		r.threads = append(r.threads, t)
	}
	return r, nil
}

// Threads returns the shard count.
func (r *Reactor) Threads() int { return len(r.threads) }

// Running reports whether the shards are accepting connections.
func (r *Reactor) Running() bool { return r.running.Load() }

// Run starts one OS-thread-locked goroutine per shard and returns once every
// shard reported its startup result. If any shard fails, the others are
// stopped and the first error is returned.
func (r *Reactor) Run() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.destroyed:
		return ErrDestroyed
	case r.running.Load():
		return ErrAlreadyRunning
	}

	ready := make(chan error, len(r.threads))
	for _, t := range r.threads {
		t.running.Store(true)
	}
	r.running.Store(true)
	for _, t := range r.threads {
		r.wg.Add(1)
		go t.run(&r.wg, ready)
	}

	var errs []error
	for range r.threads {
		if err := <-ready; err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.stopLocked()
		return fmt.Errorf("reactor run: %w", errors.Join(errs...))
	}
	r.log.Info("reactor running",
		zap.Int("threads", len(r.threads)),
		zap.Bool("pinned", r.cfg.PinThreads))
	return nil
}

// AddConnection hands fd to the next shard in round-robin order. The call
// never blocks; on any error the caller keeps ownership of fd and must close
// it. On success the reactor owns fd. Calls racing with Stop or Destroy
// either fail with ErrNotRunning or land in a queue that Destroy drains.
func (r *Reactor) AddConnection(fd int) error {
	if fd < 0 {
		return fmt.Errorf("add connection fd %d: %w", fd, api.ErrInvalidArgument)
	}
	r.inflight.Add(1)
	defer r.inflight.Add(-1)
	if !r.running.Load() {
		return ErrNotRunning
	}
	idx := int((r.cursor.Add(1) - 1) % uint32(len(r.threads)))
	if !r.threads[idx].queue.Push(fd) {
		r.log.Warn("admission queue full, shedding connection",
			zap.Int("thread", idx), zap.Int("fd", fd))
		return api.NewError(api.ErrCodeResourceExhausted, "admission queue full").
			WithContext("thread", idx).
			WithContext("fd", fd).
			WithCause(ErrQueueFull)
	}
	return nil
}

// Stop clears the running flags and waits for every shard to leave its loop.
// Connections stay open until Destroy.
func (r *Reactor) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running.Load() {
		return ErrAlreadyStopped
	}
	r.stopLocked()
	r.log.Info("reactor stopped")
	return nil
}

func (r *Reactor) stopLocked() {
	r.running.Store(false)
	for _, t := range r.threads {
		t.running.Store(false)
	}
	r.wg.Wait()
	r.waitAdmissions()
}

// waitAdmissions waits out AddConnection calls that passed the running check
// before it was cleared, so their pushes are visible to teardown.
func (r *Reactor) waitAdmissions() {
	for r.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

// Destroy stops the reactor if needed and releases every resource it owns:
// live connections (OnClose with CloseShutdown), fds still queued for
// admission and the pollers. Subsequent calls do nothing.
func (r *Reactor) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	if r.running.Load() {
		r.stopLocked()
	}
	r.waitAdmissions()
	for _, t := range r.threads {
		t.teardown()
	}
	r.destroyed = true
	r.log.Info("reactor destroyed")
}

// Shutdown stops and destroys the reactor.
func (r *Reactor) Shutdown() error {
	if err := r.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
		return err
	}
	r.Destroy()
	return nil
}

// Stats returns a snapshot of every shard's counters.
func (r *Reactor) Stats() Stats {
	s := Stats{Running: r.running.Load(), Threads: make([]ThreadStats, len(r.threads))}
	for i, t := range r.threads {
		s.Threads[i] = t.stats()
	}
	return s
}
