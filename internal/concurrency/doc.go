// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-reactor: the lock-free admission ring
// shared between acceptors and reactor shards, idle backoff for poll loops,
// and OS thread CPU pinning.
package concurrency
