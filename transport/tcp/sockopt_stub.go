//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"
	"syscall"

	"github.com/momentics/hioload-reactor/api"
)

func listenControl(bool) func(string, string, syscall.RawConn) error {
	return nil
}

func setBacklog(*net.TCPListener, int) error { return nil }

func detach(*net.TCPConn) (int, error) { return -1, api.ErrNotSupported }

func closeFd(int) error { return api.ErrNotSupported }
