//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// The reactor needs epoll; other platforms fail at construction.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-reactor/api"
)

func newPoller(int) (poller, error) {
	return nil, fmt.Errorf("reactor poller: %w", api.ErrNotSupported)
}
