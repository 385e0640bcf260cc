// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// TCP listener/acceptor feeding descriptors into a reactor.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-reactor/internal/concurrency"
)

// DefaultBacklog matches the listen depth used for high connection rates.
const DefaultBacklog = 65535

// Admitter takes ownership of a socket descriptor or returns an error, in
// which case the caller still owns it. *reactor.Reactor satisfies it.
type Admitter interface {
	AddConnection(fd int) error
}

// ListenerConfig holds configuration for the TCP listener.
type ListenerConfig struct {
	Addr      string      // TCP address to bind (e.g., ":9001")
	Backlog   int         // listen(2) backlog; DefaultBacklog if zero
	ReusePort bool        // set SO_REUSEPORT so several processes can share Addr
	NoDelay   bool        // set TCP_NODELAY on accepted sockets
	AcceptCPU int         // pin the accept goroutine to this CPU; negative disables
	Logger    *zap.Logger // zap.NewNop() if nil
}

// DefaultListenerConfig returns a config for addr with Nagle disabled and no pinning.
func DefaultListenerConfig(addr string) ListenerConfig {
	return ListenerConfig{
		Addr:      addr,
		Backlog:   DefaultBacklog,
		ReusePort: true,
		NoDelay:   true,
		AcceptCPU: -1,
	}
}

// Acceptor owns a listening socket and feeds accepted descriptors to an Admitter.
type Acceptor struct {
	cfg  ListenerConfig
	ln   *net.TCPListener
	sink Admitter
	log  *zap.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64
	closed   atomic.Bool
}

// Listen opens the listening socket. Accepting starts with Serve.
func Listen(cfg ListenerConfig, sink Admitter) (*Acceptor, error) {
	if sink == nil {
		return nil, errors.New("tcp listen: nil admitter")
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	lc := net.ListenConfig{Control: listenControl(cfg.ReusePort)}
	ln, err := lc.Listen(context.Background(), "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}
	tl := ln.(*net.TCPListener)
	if err := setBacklog(tl, cfg.Backlog); err != nil {
		_ = tl.Close()
		return nil, fmt.Errorf("tcp listen backlog: %w", err)
	}
	a := &Acceptor{
		cfg:  cfg,
		ln:   tl,
		sink: sink,
		log:  cfg.Logger.Named("acceptor"),
	}
	a.log.Info("tcp listening", zap.Stringer("addr", tl.Addr()), zap.Int("backlog", cfg.Backlog))
	return a, nil
}

// Addr returns the bound address.
func (a *Acceptor) Addr() net.Addr { return a.ln.Addr() }

// Accepted returns the number of connections admitted by the sink.
func (a *Acceptor) Accepted() uint64 { return a.accepted.Load() }

// Rejected returns the number of connections refused by the sink or lost
// while detaching; each was closed.
func (a *Acceptor) Rejected() uint64 { return a.rejected.Load() }

// Serve runs the accept loop until ctx is cancelled or Close is called.
// It returns nil on orderly shutdown.
func (a *Acceptor) Serve(ctx context.Context) error {
	if a.cfg.AcceptCPU >= 0 {
		if err := concurrency.PinCurrentThread(a.cfg.AcceptCPU); err != nil {
			a.log.Warn("accept loop pinning failed", zap.Int("cpu", a.cfg.AcceptCPU), zap.Error(err))
		}
		defer func() {
			_ = concurrency.UnpinCurrentThread()
			runtime.UnlockOSThread()
		}()
	}
	stop := context.AfterFunc(ctx, func() { _ = a.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := a.ln.AcceptTCP()
		if err != nil {
			if a.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// EMFILE and friends: back off instead of spinning.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			a.log.Warn("accept error", zap.Error(err), zap.Duration("retry_in", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0
		a.admit(conn)
	}
}

func (a *Acceptor) admit(conn *net.TCPConn) {
	if a.cfg.NoDelay {
		_ = conn.SetNoDelay(true)
	}
	fd, err := detach(conn)
	if err != nil {
		a.rejected.Add(1)
		a.log.Warn("detach accepted socket", zap.Error(err))
		return
	}
	if err := a.sink.AddConnection(fd); err != nil {
		a.rejected.Add(1)
		_ = closeFd(fd)
		a.log.Debug("connection refused by reactor", zap.Int("fd", fd), zap.Error(err))
		return
	}
	a.accepted.Add(1)
}

// Close stops accepting. Admitted connections are unaffected.
func (a *Acceptor) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.ln.Close()
}
