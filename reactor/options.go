// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
//
// Reactor configuration, defaults and validation.

package reactor

import (
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
)

const (
	// MaxThreads is the upper bound on reactor shards.
	MaxThreads = 16

	DefaultQueueCapacity     = 1 << 16
	DefaultBatchSize         = 64
	DefaultBufferSize        = 8192
	DefaultMaxConnsPerThread = 100000
	DefaultMaxEvents         = 1024
	DefaultWaitTimeout       = 10 * time.Millisecond
	DefaultSweepEvery        = 100
	DefaultIdleTimeout       = 30 * time.Second
)

// Config holds reactor tunables. Zero values other than Threads are replaced
// by defaults in New.
type Config struct {
	Threads           int           // shard count, 1..MaxThreads
	QueueCapacity     int           // per-shard admission queue, power of two
	BatchSize         int           // fds admitted per loop iteration
	BufferSize        int           // read and write buffer size per connection
	MaxConnsPerThread int           // slot table capacity per shard
	MaxEvents         int           // epoll_wait batch
	WaitTimeout       time.Duration // bounded wait; also the shutdown latency
	SweepEvery        int           // iterations between idle sweeps
	IdleTimeout       time.Duration // inactivity threshold for eviction

	PinThreads bool // bind shard i to CPU PinBaseCPU+i
	PinStrict  bool // fail Run if pinning fails instead of logging it
	PinBaseCPU int

	Handler Handler     // attached to every admitted connection; EchoHandler if nil
	Logger  *zap.Logger // zap.NewNop() if nil
}

// DefaultConfig returns a configuration with one shard per CPU (capped at MaxThreads).
func DefaultConfig() Config {
	return Config{
		Threads:           min(max(runtime.NumCPU(), 1), MaxThreads),
		QueueCapacity:     DefaultQueueCapacity,
		BatchSize:         DefaultBatchSize,
		BufferSize:        DefaultBufferSize,
		MaxConnsPerThread: DefaultMaxConnsPerThread,
		MaxEvents:         DefaultMaxEvents,
		WaitTimeout:       DefaultWaitTimeout,
		SweepEvery:        DefaultSweepEvery,
		IdleTimeout:       DefaultIdleTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxConnsPerThread == 0 {
		c.MaxConnsPerThread = DefaultMaxConnsPerThread
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.SweepEvery == 0 {
		c.SweepEvery = DefaultSweepEvery
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Handler == nil {
		c.Handler = EchoHandler{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1 || c.Threads > MaxThreads:
		return invalid("threads %d not in [1, %d]", c.Threads, MaxThreads)
	case c.QueueCapacity < 2 || c.QueueCapacity > concurrency.MaxRingCapacity ||
		c.QueueCapacity&(c.QueueCapacity-1) != 0:
		return invalid("queue capacity %d is not a power of two >= 2", c.QueueCapacity)
	case c.BatchSize < 1:
		return invalid("batch size %d < 1", c.BatchSize)
	case c.BufferSize < 1:
		return invalid("buffer size %d < 1", c.BufferSize)
	case c.MaxConnsPerThread < 1:
		return invalid("max conns per thread %d < 1", c.MaxConnsPerThread)
	case c.MaxEvents < 1:
		return invalid("max events %d < 1", c.MaxEvents)
	case c.WaitTimeout < time.Millisecond:
		return invalid("wait timeout %s < 1ms", c.WaitTimeout)
	case c.SweepEvery < 1:
		return invalid("sweep interval %d < 1", c.SweepEvery)
	case c.IdleTimeout <= 0:
		return invalid("idle timeout %s <= 0", c.IdleTimeout)
	case c.PinBaseCPU < 0:
		return invalid("pin base cpu %d < 0", c.PinBaseCPU)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("reactor config: "+format+": %w", append(args, api.ErrInvalidArgument)...)
}
