// Author: momentics <momentics@gmail.com>

package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/transport/tcp"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, ":9001", s.ListenAddr)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, reactor.DefaultQueueCapacity, s.Reactor.QueueCapacity)
	assert.Equal(t, reactor.DefaultIdleTimeout, s.Reactor.IdleTimeout)
	assert.Equal(t, reactor.DefaultWaitTimeout, s.Reactor.WaitTimeout)
	assert.Equal(t, tcp.DefaultBacklog, s.Listener.Backlog)
	assert.Equal(t, -1, s.Listener.AcceptCPU)
	assert.True(t, s.Listener.NoDelay)

	cfg := s.ReactorConfig(zaptest.NewLogger(t))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, reactor.DefaultConfig().Threads, cfg.Threads)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hioload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSettings_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
listen_addr: "127.0.0.1:7000"
log_level: debug
reactor:
  threads: 3
  idle_timeout: 5s
  queue_capacity: 1024
listener:
  backlog: 128
`)
	t.Setenv("HIOLOAD_REACTOR_THREADS", "2")

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", s.ListenAddr)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 2, s.Reactor.Threads, "environment wins over file")
	assert.Equal(t, 5*time.Second, s.Reactor.IdleTimeout)
	assert.Equal(t, 1024, s.Reactor.QueueCapacity)
	assert.Equal(t, 128, s.Listener.Backlog)

	cfg := s.ReactorConfig(nil)
	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)

	lc := s.ListenerConfig(nil)
	assert.Equal(t, "127.0.0.1:7000", lc.Addr)
	assert.Equal(t, 128, lc.Backlog)
}

func TestLoadSettings_Errors(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadSettings(writeConfig(t, "log_level: loud\n"))
	assert.Error(t, err)

	_, err = LoadSettings(writeConfig(t, "listen_addr: \"\"\n"))
	assert.Error(t, err)
}

func TestLoader_ReloadRunsHooks(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")
	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	var got []string
	l.OnReload(func(s *Settings) { got = append(got, s.LogLevel) })

	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))
	l.reload(func(err error) { t.Fatalf("unexpected reload error: %v", err) })
	assert.Equal(t, []string{"warn"}, got)

	var reloadErr error
	require.NoError(t, os.WriteFile(path, []byte("log_level: nope\n"), 0o600))
	l.reload(func(err error) { reloadErr = err })
	assert.Error(t, reloadErr)
	assert.Len(t, got, 1, "hooks must not run on invalid settings")
}
