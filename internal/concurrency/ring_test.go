// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package concurrency

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-reactor/api"
)

func TestNewRingQueue_RejectsNonPowerOfTwo(t *testing.T) {
	for _, capacity := range []int{-4, 0, 1, 3, 6, 100, MaxRingCapacity + 1} {
		q, err := NewRingQueue[int](capacity)
		assert.ErrorIs(t, err, api.ErrInvalidArgument, "capacity %d", capacity)
		assert.Nil(t, q)
	}
	for _, capacity := range []int{2, 8, 1024} {
		q, err := NewRingQueue[int](capacity)
		require.NoError(t, err)
		assert.Equal(t, capacity, q.Cap())
		assert.True(t, q.IsEmpty())
	}
}

func TestRingQueue_PushFailsOnlyWhenFull(t *testing.T) {
	const n = 8
	q, err := NewRingQueue[int](n)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		require.False(t, q.IsFull())
		require.True(t, q.Push(100+i))
	}
	assert.True(t, q.IsFull())
	assert.EqualValues(t, n, q.Size())

	assert.False(t, q.Push(999))
	stats := q.Stats()
	assert.EqualValues(t, 1, stats.PushFailures)
	assert.EqualValues(t, n, stats.Pushed)
	assert.EqualValues(t, n, q.Size(), "rejected push must not overwrite")

	for i := 0; i < n; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, 100+i, v)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.EqualValues(t, n, q.Stats().Popped)
}

func TestRingQueue_PushBatchPartial(t *testing.T) {
	q, err := NewRingQueue[int](8)
	require.NoError(t, err)
	require.Equal(t, 3, q.PushBatch([]int{1, 2, 3}))

	before := q.Stats().Pushed
	items := []int{4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	m := q.PushBatch(items)
	assert.Equal(t, 5, m)
	assert.EqualValues(t, 8, q.Size())
	assert.EqualValues(t, before+uint64(m), q.Stats().Pushed)

	assert.Zero(t, q.PushBatch([]int{42}))
	assert.EqualValues(t, 1, q.Stats().PushFailures)
	assert.Zero(t, q.PushBatch(nil))

	out := make([]int, 16)
	got := q.PopBatch(out)
	require.Equal(t, 8, got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, out[:got])
}

func TestRingQueue_BatchWrapsAround(t *testing.T) {
	q, err := NewRingQueue[int](8)
	require.NoError(t, err)

	// Move head/tail to index 6 so the next batch spans the buffer end.
	require.Equal(t, 6, q.PushBatch([]int{0, 0, 0, 0, 0, 0}))
	require.Equal(t, 6, q.PopBatch(make([]int, 6)))

	require.Equal(t, 5, q.PushBatch([]int{10, 11, 12, 13, 14}))
	assert.EqualValues(t, 5, q.Size())

	out := make([]int, 3)
	require.Equal(t, 3, q.PopBatch(out))
	assert.Equal(t, []int{10, 11, 12}, out)
	assert.EqualValues(t, 2, q.Size())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 13, v)
	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 14, v)
	assert.True(t, q.IsEmpty())
}

func TestRingQueue_PopBatchDecreasesSizeExactly(t *testing.T) {
	q, err := NewRingQueue[int](16)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.True(t, q.Push(i))
	}
	out := make([]int, 4)
	m := q.PopBatch(out)
	assert.Equal(t, 4, m)
	assert.EqualValues(t, 6, q.Size())
	assert.Zero(t, q.PopBatch(out[:0]))
}

// TestRingQueue_PropertyModel runs random operations against a slice model.
func TestRingQueue_PropertyModel(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		q, err := NewRingQueue[int](64)
		require.NoError(t, err)
		var model []int
		next := 0

		for i := 0; i < 5000; i++ {
			switch rnd.Intn(4) {
			case 0:
				full := len(model) == q.Cap()
				ok := q.Push(next)
				require.Equal(t, !full, ok, "push result must match fullness")
				if ok {
					model = append(model, next)
				}
				next++
			case 1:
				v, ok := q.Pop()
				require.Equal(t, len(model) > 0, ok)
				if ok {
					require.Equal(t, model[0], v)
					model = model[1:]
				}
			case 2:
				batch := make([]int, rnd.Intn(20)+1)
				for j := range batch {
					batch[j] = next
					next++
				}
				m := q.PushBatch(batch)
				require.Equal(t, min(len(batch), q.Cap()-len(model)), m)
				model = append(model, batch[:m]...)
			case 3:
				out := make([]int, rnd.Intn(20)+1)
				m := q.PopBatch(out)
				require.Equal(t, min(len(out), len(model)), m)
				if m > 0 {
					require.Equal(t, model[:m], out[:m])
				}
				model = model[m:]
			}
			require.EqualValues(t, len(model), q.Size())
		}
	}
}

// TestRingQueue_ConcurrentProducersSingleConsumer checks that nothing is lost,
// duplicated, or reordered within one producer's submissions.
func TestRingQueue_ConcurrentProducersSingleConsumer(t *testing.T) {
	const (
		producers = 4
		perProd   = 20000
	)
	q, err := NewRingQueue[uint64](256)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p uint64) {
			defer wg.Done()
			for i := uint64(0); i < perProd; {
				if p%2 == 0 {
					if q.Push(p<<32 | i) {
						i++
					}
					continue
				}
				batch := make([]uint64, 0, 8)
				for j := i; j < perProd && len(batch) < cap(batch); j++ {
					batch = append(batch, p<<32|j)
				}
				i += uint64(q.PushBatch(batch))
			}
		}(uint64(p))
	}

	last := make([]int64, producers)
	for i := range last {
		last[i] = -1
	}
	out := make([]uint64, 32)
	total := 0
	for total < producers*perProd {
		m := q.PopBatch(out)
		for _, v := range out[:m] {
			p, seq := v>>32, int64(v&0xffffffff)
			require.Equal(t, last[p]+1, seq, "producer %d out of order", p)
			last[p] = seq
		}
		total += m
	}
	wg.Wait()
	assert.True(t, q.IsEmpty())
	assert.EqualValues(t, producers*perProd, q.Stats().Popped)
}

func TestRingQueue_ConcurrentMPMC(t *testing.T) {
	const (
		producers = 3
		consumers = 3
		perProd   = 10000
	)
	q, err := NewRingQueue[uint64](64)
	require.NoError(t, err)

	var prodWG, consWG sync.WaitGroup
	results := make(chan []uint64, consumers)
	var remaining sync.WaitGroup
	remaining.Add(producers * perProd)
	done := make(chan struct{})

	for p := 0; p < producers; p++ {
		prodWG.Add(1)
		go func(p uint64) {
			defer prodWG.Done()
			for i := uint64(0); i < perProd; {
				if q.Push(p<<32 | i) {
					i++
				}
			}
		}(uint64(p))
	}
	for c := 0; c < consumers; c++ {
		consWG.Add(1)
		go func() {
			defer consWG.Done()
			var seen []uint64
			buf := make([]uint64, 4)
			for {
				select {
				case <-done:
					results <- seen
					return
				default:
				}
				m := q.PopBatch(buf)
				for _, v := range buf[:m] {
					seen = append(seen, v)
					remaining.Done()
				}
			}
		}()
	}

	prodWG.Wait()
	remaining.Wait()
	close(done)
	consWG.Wait()
	close(results)

	all := make(map[uint64]struct{}, producers*perProd)
	for seen := range results {
		for _, v := range seen {
			_, dup := all[v]
			require.False(t, dup, "duplicate item %x", v)
			all[v] = struct{}{}
		}
	}
	assert.Len(t, all, producers*perProd)
}
