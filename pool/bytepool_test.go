package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-reactor/pool"
)

func TestBytePool_FixedSize(t *testing.T) {
	bp := pool.NewBytePool(128)
	b1 := bp.GetBuffer()
	require.Len(t, b1, 128)
	assert.EqualValues(t, 1, bp.InUse())

	bp.PutBuffer(b1[:10])
	assert.EqualValues(t, 0, bp.InUse())

	b2 := bp.GetBuffer()
	assert.Len(t, b2, 128, "returned buffers are restored to full length")
	bp.PutBuffer(b2)
}

func TestBytePool_DropsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	bp.PutBuffer(make([]byte, 32))
	assert.EqualValues(t, 0, bp.InUse())
	assert.Len(t, bp.GetBuffer(), 64)
}

func TestSyncPool_ResetOnPut(t *testing.T) {
	type item struct{ n int }
	sp := pool.NewSyncPool(func() *item { return &item{} }, func(it *item) { it.n = 0 })
	it := sp.Get()
	it.n = 7
	sp.Put(it)
	assert.Zero(t, it.n)
}
