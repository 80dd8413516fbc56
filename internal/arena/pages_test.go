package arena

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/csrgo/internal/resource"
)

func TestPageList_New(t *testing.T) {
	t.Run("default page size", func(t *testing.T) {
		p := NewPageList[byte](0)
		assert.Equal(t, DefaultPageSize, p.PageSize())
	})

	t.Run("rounded to power of two", func(t *testing.T) {
		p := NewPageList[uint64](1000)
		assert.Equal(t, 1024, p.PageSize())
	})

	t.Run("minimum page size", func(t *testing.T) {
		p := NewPageList[byte](3)
		assert.Equal(t, MinPageSize, p.PageSize())
	})
}

func TestAllocator_Write(t *testing.T) {
	p := NewPageList[uint64](64)
	a := p.NewAllocator()

	off1, err := a.Write([]uint64{1, 2, 3}, 3)
	require.NoError(t, err)
	off2, err := a.Write([]uint64{4, 5, 6, 7}, 2)
	require.NoError(t, err)

	a.Close()
	pages, err := p.IntoPages()
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3}, pages.Slice(off1, 3))
	assert.Equal(t, []uint64{4, 5}, pages.Slice(off2, 2))
	assert.Len(t, pages.pages, 1)
	assert.Equal(t, uint64(3), off2)
}

func TestAllocator_ZeroLength(t *testing.T) {
	p := NewPageList[byte](64)
	a := p.NewAllocator()
	defer a.Close()

	off, err := a.Write(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, uint64(0), p.Stats().Pages)
}

func TestAllocator_InvalidLength(t *testing.T) {
	p := NewPageList[byte](64)
	a := p.NewAllocator()
	defer a.Close()

	_, err := a.Write([]byte{1, 2}, 3)
	assert.Error(t, err)
	_, err = a.Write([]byte{1, 2}, -1)
	assert.Error(t, err)
}

func TestAllocator_NeverSpansPages(t *testing.T) {
	p := NewPageList[byte](64)
	a := p.NewAllocator()

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}

	off1, err := a.Write(data, 40)
	require.NoError(t, err)
	// 40 + 40 > 64, so the second write must start a new page
	off2, err := a.Write(data, 40)
	require.NoError(t, err)

	a.Close()
	pages, err := p.IntoPages()
	require.NoError(t, err)

	assert.Equal(t, uint64(0), off1>>pages.pageShift)
	assert.Equal(t, uint64(1), off2>>pages.pageShift)
	assert.Equal(t, uint64(0), off2&pages.pageMask)
	assert.Equal(t, data, pages.Slice(off2, 40))
	assert.Equal(t, data, pages.From(off1)[:40])
}

func TestAllocator_Oversized(t *testing.T) {
	p := NewPageList[uint64](64)
	a := p.NewAllocator()

	small, err := a.Write([]uint64{9}, 1)
	require.NoError(t, err)

	big := make([]uint64, 200)
	for i := range big {
		big[i] = uint64(i * 3)
	}
	bigOff, err := a.Write(big, len(big))
	require.NoError(t, err)

	// the current page keeps filling after an oversized write
	next, err := a.Write([]uint64{10}, 1)
	require.NoError(t, err)

	a.Close()
	pages, err := p.IntoPages()
	require.NoError(t, err)

	assert.Equal(t, big, pages.Slice(bigOff, len(big)))
	assert.Equal(t, uint64(0), bigOff&pages.pageMask)
	assert.Equal(t, small>>pages.pageShift, next>>pages.pageShift)
	assert.Equal(t, uint64(10), pages.Slice(next, 1)[0])

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Pages)
	assert.Equal(t, uint64(1), stats.OversizedPages)
	assert.Equal(t, uint64(202*8), stats.BytesUsed)
	assert.Equal(t, uint64(3), stats.Writes)
}

func TestAllocator_CloseIdempotent(t *testing.T) {
	p := NewPageList[byte](64)
	a := p.NewAllocator()
	a.Close()
	a.Close()

	_, err := a.Write([]byte{1}, 1)
	assert.ErrorIs(t, err, ErrAllocatorClosed)

	_, err = p.IntoPages()
	require.NoError(t, err)
}

func TestPageList_IntoPages(t *testing.T) {
	t.Run("open allocators", func(t *testing.T) {
		p := NewPageList[byte](64)
		a := p.NewAllocator()
		_, err := p.IntoPages()
		assert.ErrorIs(t, err, ErrOpenAllocators)
		a.Close()
	})

	t.Run("only once", func(t *testing.T) {
		p := NewPageList[byte](64)
		_, err := p.IntoPages()
		require.NoError(t, err)
		_, err = p.IntoPages()
		assert.ErrorIs(t, err, ErrFinalized)
	})

	t.Run("write after finalize", func(t *testing.T) {
		p := NewPageList[byte](64)
		_, err := p.IntoPages()
		require.NoError(t, err)

		a := p.NewAllocator()
		defer a.Close()
		_, err = a.Write([]byte{1}, 1)
		assert.ErrorIs(t, err, ErrFinalized)
	})
}

func TestPageList_ResourceExhausted(t *testing.T) {
	t.Run("memory limit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
		p := NewPageList[uint64](64, WithMemoryAcquirer(rc))
		a := p.NewAllocator()
		defer a.Close()

		// one page is 512 bytes
		_, err := a.Write([]uint64{1}, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResourceExhausted)
		assert.True(t, errors.Is(err, resource.ErrMemoryLimitExceeded))
	})

	t.Run("page limit", func(t *testing.T) {
		p := NewPageList[byte](64, WithMaxPages(1))
		a := p.NewAllocator()
		defer a.Close()

		_, err := a.Write(make([]byte, 64), 64)
		require.NoError(t, err)
		_, err = a.Write([]byte{1}, 1)
		assert.ErrorIs(t, err, ErrResourceExhausted)
	})

	t.Run("release accounting", func(t *testing.T) {
		rc := resource.NewController(resource.Config{})
		p := NewPageList[uint64](64, WithMemoryAcquirer(rc))
		a := p.NewAllocator()
		_, err := a.Write([]uint64{1}, 1)
		require.NoError(t, err)
		a.Close()

		pages, err := p.IntoPages()
		require.NoError(t, err)
		assert.Equal(t, int64(512), rc.MemoryUsage())
		assert.Equal(t, int64(512), pages.SizeInBytes())

		pages.Release()
		pages.Release()
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}

func TestAllocator_ConcurrentWritesDoNotOverlap(t *testing.T) {
	const (
		workers = 8
		writes  = 500
	)

	p := NewPageList[uint64](128)
	offsets := make([][]uint64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			a := p.NewAllocator()
			defer a.Close()

			for i := 0; i < writes; i++ {
				length := 1 + (i % 7)
				data := make([]uint64, length)
				for j := range data {
					data[j] = uint64(w)<<32 | uint64(i)
				}
				off, err := a.Write(data, length)
				if err != nil {
					t.Error(err)
					return
				}
				offsets[w] = append(offsets[w], off)
			}
		}(w)
	}
	wg.Wait()

	pages, err := p.IntoPages()
	require.NoError(t, err)

	for w := 0; w < workers; w++ {
		require.Len(t, offsets[w], writes)
		for i, off := range offsets[w] {
			length := 1 + (i % 7)
			for _, v := range pages.Slice(off, length) {
				assert.Equal(t, uint64(w)<<32|uint64(i), v)
			}
		}
	}
}
