//go:build !linux
// +build !linux

// File: reactor/sockio_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import "github.com/momentics/hioload-reactor/api"

func sysRead(int, []byte) (int, error)  { return 0, api.ErrNotSupported }
func sysWrite(int, []byte) (int, error) { return 0, api.ErrNotSupported }
func sysClose(int) error                { return api.ErrNotSupported }
func setNonblock(int) error             { return api.ErrNotSupported }
func isWouldBlock(error) bool           { return false }
func isInterrupted(error) bool          { return false }
func socketError(int) error             { return nil }
