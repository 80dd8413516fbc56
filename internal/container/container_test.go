package container

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/csrgo/model"
)

func TestSegmentedArray(t *testing.T) {
	sa := NewSegmentedArray[uint64]()

	sa.Set(5, 50)
	sa.Set(segmentSize+1, 7)

	dst := make([]uint64, segmentSize+2)
	sa.CopyTo(dst)
	assert.Equal(t, uint64(50), dst[5])
	assert.Equal(t, uint64(7), dst[segmentSize+1])
	assert.Equal(t, uint64(0), dst[6])
}

func TestSegmentedArray_CopyToUnallocated(t *testing.T) {
	sa := NewSegmentedArray[uint64]()
	dst := []uint64{1, 2, 3}
	sa.CopyTo(dst)
	assert.Equal(t, []uint64{0, 0, 0}, dst)
}

func TestSegmentedArray_ConcurrentDistinctIndexes(t *testing.T) {
	sa := NewSegmentedArray[uint64]()
	var next atomic.Uint64

	const total = 300_000
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= total {
					return
				}
				sa.Set(i, i*2)
			}
		}()
	}
	wg.Wait()

	dst := make([]uint64, total)
	sa.CopyTo(dst)
	for i, v := range dst {
		if v != uint64(i)*2 {
			t.Fatalf("index %d: got %d", i, v)
		}
	}
}

func TestSparseArray(t *testing.T) {
	s := NewSparseArray(1 << 30)
	assert.Zero(t, s.SizeInBytes())

	assert.Equal(t, model.NotFound, s.Get(123))
	assert.False(t, s.Contains(123))

	require.NoError(t, s.Set(123, 0))
	assert.Equal(t, uint64(0), s.Get(123))
	assert.True(t, s.Contains(123))

	require.NoError(t, s.Set(1<<29, 42))
	assert.Equal(t, uint64(42), s.Get(1<<29))
	assert.Equal(t, 2, s.pages.Leaves())
	assert.Equal(t, int64(2*sparsePageSize*8), s.SizeInBytes())

	assert.Equal(t, model.NotFound, s.Get(1<<31))
	assert.ErrorIs(t, s.Set(1<<30, 1), ErrOutOfRange)
}

func TestSparseArray_HugeIndexes(t *testing.T) {
	s := NewSparseArray(^uint64(0))

	indexes := []uint64{10, 1 << 40, 1 << 62, ^uint64(0) - 1}
	for i, index := range indexes {
		ok, err := s.SetIfAbsent(index, uint64(i))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// pages follow the touched indexes, not the capacity
	assert.Equal(t, len(indexes), s.pages.Leaves())
	for i, index := range indexes {
		assert.Equal(t, uint64(i), s.Get(index))
	}
	assert.Equal(t, model.NotFound, s.Get(1<<40+1))
	assert.Equal(t, model.NotFound, s.Get(1<<50))
}

func TestSparseArray_SetIfAbsent(t *testing.T) {
	s := NewSparseArray(100)

	ok, err := s.SetIfAbsent(10, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(10, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), s.Get(10))

	_, err = s.SetIfAbsent(100, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSparseArray_ConcurrentSetIfAbsent(t *testing.T) {
	s := NewSparseArray(10_000)
	var wins atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint64(0); i < 10_000; i++ {
				ok, err := s.SetIfAbsent(i, uint64(w))
				if err != nil {
					t.Error(err)
					return
				}
				if ok {
					wins.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(10_000), wins.Load())
}

func TestDirectory(t *testing.T) {
	d := NewDirectory[uint64]()
	assert.Nil(t, d.Leaf(0))
	assert.Nil(t, d.Leaf(1<<40))

	*d.LeafOrCreate(3) = 30
	assert.Equal(t, uint64(30), *d.Leaf(3))
	assert.Same(t, d.Leaf(3), d.LeafOrCreate(3))

	// growing the tree keeps existing leaves reachable
	*d.LeafOrCreate(1 << 40) = 40
	*d.LeafOrCreate(^uint64(0)) = 64
	assert.Equal(t, uint64(30), *d.Leaf(3))
	assert.Equal(t, uint64(40), *d.Leaf(1<<40))
	assert.Equal(t, uint64(64), *d.Leaf(^uint64(0)))
	assert.Nil(t, d.Leaf(1<<40+1))
	assert.Equal(t, 3, d.Leaves())

	var slots []uint64
	d.ForEachLeaf(func(slot uint64, leaf *uint64) bool {
		slots = append(slots, slot)
		return true
	})
	assert.Equal(t, []uint64{3, 1 << 40, ^uint64(0)}, slots)

	var first []uint64
	d.ForEachLeaf(func(slot uint64, _ *uint64) bool {
		first = append(first, slot)
		return false
	})
	assert.Equal(t, []uint64{3}, first)
}

func TestDirectory_ConcurrentCreate(t *testing.T) {
	d := NewDirectory[atomic.Int64]()

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < 2000; i++ {
				// every worker touches the same slots, large ones grow the tree
				d.LeafOrCreate(i << (i % 50)).Add(1)
			}
		}()
	}
	wg.Wait()

	var total int64
	d.ForEachLeaf(func(_ uint64, leaf *atomic.Int64) bool {
		total += leaf.Load()
		return true
	})
	assert.Equal(t, int64(workers*2000), total)
	assert.Equal(t, d.Leaves(), countLeaves(d))
}

func countLeaves[L any](d *Directory[L]) int {
	n := 0
	d.ForEachLeaf(func(uint64, *L) bool {
		n++
		return true
	})
	return n
}
