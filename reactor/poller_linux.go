//go:build linux
// +build linux

// File: reactor/poller_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll poller.

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller(maxEvents int) (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

func epollMask(in interest) uint32 {
	if in == interestWrite {
		return unix.EPOLLOUT | unix.EPOLLET
	}
	return unix.EPOLLIN | unix.EPOLLET
}

func (p *epollPoller) ctl(op, fd int, slot, gen uint32, in interest) error {
	ev := unix.EpollEvent{Events: epollMask(in), Fd: int32(slot), Pad: int32(gen)}
	return unix.EpollCtl(p.epfd, op, fd, &ev)
}

func (p *epollPoller) add(fd int, slot, gen uint32, in interest) error {
	if err := p.ctl(unix.EPOLL_CTL_ADD, fd, slot, gen, in); err != nil {
		return fmt.Errorf("epoll add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) modify(fd int, slot, gen uint32, in interest) error {
	if err := p.ctl(unix.EPOLL_CTL_MOD, fd, slot, gen, in); err != nil {
		return fmt.Errorf("epoll mod fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll del fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) wait(out []readyEvent, timeout time.Duration) (int, error) {
	limit := min(len(out), len(p.events))
	n, err := unix.EpollWait(p.epfd, p.events[:limit], int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		var f eventFlags
		if ev.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
			f |= evRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			f |= evWrite
		}
		if ev.Events&unix.EPOLLERR != 0 {
			f |= evError
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			f |= evHangup
		}
		out[i] = readyEvent{slot: uint32(ev.Fd), gen: uint32(ev.Pad), flags: f}
	}
	return n, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
