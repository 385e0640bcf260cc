// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte buffer pool for per-connection read/write buffers.

package pool

import (
	"sync"
	"sync/atomic"
)

// BytePool hands out buffers of exactly Size bytes.
type BytePool struct {
	size   int
	pool   sync.Pool
	allocs atomic.Uint64
	inUse  atomic.Int64
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.pool.New = func() any {
		bp.allocs.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

// Size returns the length of every buffer handed out.
func (b *BytePool) Size() int {
	return b.size
}

// GetBuffer returns a buffer from the pool. Contents are unspecified.
func (b *BytePool) GetBuffer() []byte {
	b.inUse.Add(1)
	return *(b.pool.Get().(*[]byte))
}

// PutBuffer returns a buffer to the pool. Buffers of a foreign size are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.inUse.Add(-1)
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// Allocs reports how many buffers were ever allocated by the pool.
func (b *BytePool) Allocs() uint64 {
	return b.allocs.Load()
}

// InUse reports buffers currently checked out.
func (b *BytePool) InUse() int64 {
	return b.inUse.Load()
}
