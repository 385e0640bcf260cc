// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a sharded, edge-triggered TCP reactor.
//
// A Reactor owns a fixed set of Threads. Each Thread is one goroutine locked
// to one OS thread, with its own epoll instance, its own slot table of
// connections and a private lock-free admission queue. Accepted sockets are
// handed over with AddConnection, which round-robins them onto the shards;
// from then on every read, write, callback and timeout for that socket runs
// on its shard only.
//
// Typical use:
//
//	r, err := reactor.New(reactor.DefaultConfig())
//	if err != nil {
//		// handle error
//	}
//	defer r.Destroy()
//	if err := r.Run(); err != nil {
//		// handle error
//	}
//	// acceptor goroutine:
//	if err := r.AddConnection(fd); err != nil {
//		unix.Close(fd) // the caller keeps ownership on refusal
//	}
package reactor
