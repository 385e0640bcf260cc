//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/transport/tcp"
)

type admitFunc func(fd int) error

func (f admitFunc) AddConnection(fd int) error { return f(fd) }

func serve(t *testing.T, sink tcp.Admitter) *tcp.Acceptor {
	t.Helper()
	cfg := tcp.DefaultListenerConfig("127.0.0.1:0")
	cfg.Logger = zaptest.NewLogger(t)
	a, err := tcp.Listen(cfg, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("accept loop did not stop")
		}
	})
	return a
}

func TestAcceptor_EchoThroughReactor(t *testing.T) {
	cfg := reactor.DefaultConfig()
	cfg.Threads = 2
	cfg.QueueCapacity = 64
	cfg.MaxConnsPerThread = 64
	cfg.Logger = zaptest.NewLogger(t)
	r, err := reactor.New(cfg)
	require.NoError(t, err)
	require.NoError(t, r.Run())
	t.Cleanup(r.Destroy)

	a := serve(t, r)

	for i := 0; i < 4; i++ {
		conn, err := net.Dial("tcp", a.Addr().String())
		require.NoError(t, err)
		require.NoError(t, conn.SetDeadline(time.Now().Add(3*time.Second)))

		msg := []byte("ping-" + string(rune('0'+i)))
		_, err = conn.Write(msg)
		require.NoError(t, err)
		got := make([]byte, len(msg))
		_, err = io.ReadFull(conn, got)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
		require.NoError(t, conn.Close())
	}

	require.Eventually(t, func() bool { return a.Accepted() == 4 }, 3*time.Second, 5*time.Millisecond)
	assert.Zero(t, a.Rejected())
	assert.EqualValues(t, 4, r.Stats().Totals().TotalConnections)
}

func TestAcceptor_RefusedConnectionIsClosed(t *testing.T) {
	a := serve(t, admitFunc(func(int) error { return errors.New("full") }))

	conn, err := net.Dial("tcp", a.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || isReset(err), "got %v", err)
	require.Eventually(t, func() bool { return a.Rejected() == 1 }, 3*time.Second, 5*time.Millisecond)
	assert.Zero(t, a.Accepted())
}

func TestAcceptor_CloseIsIdempotent(t *testing.T) {
	a := serve(t, admitFunc(func(int) error { return nil }))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestListen_RejectsNilAdmitter(t *testing.T) {
	_, err := tcp.Listen(tcp.DefaultListenerConfig("127.0.0.1:0"), nil)
	assert.Error(t, err)
}

func isReset(err error) bool {
	var op *net.OpError
	return errors.As(err, &op)
}
