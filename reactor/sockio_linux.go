//go:build linux
// +build linux

// File: reactor/sockio_linux.go
// Author: momentics <momentics@gmail.com>
//
// Raw non-blocking socket I/O.

package reactor

import "golang.org/x/sys/unix"

func sysRead(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func sysWrite(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func sysClose(fd int) error { return unix.Close(fd) }

func setNonblock(fd int) error { return unix.SetNonblock(fd, true) }

func isWouldBlock(err error) bool { return err == unix.EAGAIN || err == unix.EWOULDBLOCK }

func isInterrupted(err error) bool { return err == unix.EINTR }

// socketError fetches and clears the pending SO_ERROR of fd.
func socketError(fd int) error {
	code, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if code != 0 {
		return unix.Errno(code)
	}
	return nil
}
