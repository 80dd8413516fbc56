package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// MemoryAcquirer is an interface for accounting page memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrResourceExhausted is returned when a page cannot be allocated.
	ErrResourceExhausted = errors.New("arena: resource exhausted")
	// ErrFinalized is returned when the page list was already turned into Pages.
	ErrFinalized = errors.New("arena: page list finalized")
	// ErrAllocatorClosed is returned by Write after Close.
	ErrAllocatorClosed = errors.New("arena: allocator closed")
	// ErrOpenAllocators is returned by IntoPages while allocators are still open.
	ErrOpenAllocators = errors.New("arena: allocators still open")
)

const (
	// DefaultPageSize is the default page size in elements.
	DefaultPageSize = 1 << 15
	// MinPageSize is the smallest page size accepted.
	MinPageSize = 64
)

// Element is a type that can be stored in pages.
type Element interface {
	~byte | ~uint64
}

// Stats tracks page list usage.
type Stats struct {
	Pages          uint64 // pages allocated, including oversized ones
	OversizedPages uint64 // pages dedicated to a single large write
	BytesReserved  uint64 // bytes of page memory reserved
	BytesUsed      uint64 // bytes actually written
	Writes         uint64 // number of Write calls that stored data
}

type atomicStats struct {
	Pages          atomic.Uint64
	OversizedPages atomic.Uint64
	BytesReserved  atomic.Uint64
	BytesUsed      atomic.Uint64
	Writes         atomic.Uint64
}

// Option is a configuration option for PageList.
type Option func(*config)

type config struct {
	acquirer MemoryAcquirer
	maxPages int
}

// WithMemoryAcquirer accounts every page against the given acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(c *config) {
		c.acquirer = acquirer
	}
}

// WithMaxPages limits the number of pages the list may hold.
// Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(c *config) {
		c.maxPages = n
	}
}

// PageList is the shared, growable page collection. It is safe for
// concurrent use by any number of allocators.
type PageList[T Element] struct {
	pageSize  int
	pageShift uint
	elemSize  int
	cfg       config

	_ cpu.CacheLinePad

	mu        sync.Mutex
	pages     [][]T
	finalized bool

	open  atomic.Int64
	stats atomicStats
}

// NewPageList creates a PageList whose pages hold pageSize elements.
// pageSize is rounded up to the next power of two.
func NewPageList[T Element](pageSize int, opts ...Option) *PageList[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}

	shift := uint(bits.Len(uint(pageSize - 1))) //nolint:gosec // pageSize > 0
	var zero T

	p := &PageList[T]{
		pageSize:  1 << shift,
		pageShift: shift,
		elemSize:  int(unsafe.Sizeof(zero)),
	}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	return p
}

// PageSize returns the page size in elements.
func (p *PageList[T]) PageSize() int {
	return p.pageSize
}

// NewAllocator returns a new allocator handle. Each handle must be used by
// a single goroutine at a time and closed when that goroutine is done.
func (p *PageList[T]) NewAllocator() *Allocator[T] {
	p.open.Add(1)
	return &Allocator[T]{list: p}
}

// Stats returns the current usage statistics.
func (p *PageList[T]) Stats() Stats {
	return Stats{
		Pages:          p.stats.Pages.Load(),
		OversizedPages: p.stats.OversizedPages.Load(),
		BytesReserved:  p.stats.BytesReserved.Load(),
		BytesUsed:      p.stats.BytesUsed.Load(),
		Writes:         p.stats.Writes.Load(),
	}
}

// newPage appends a page of the given capacity and returns it with its index.
func (p *PageList[T]) newPage(capacity int) ([]T, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finalized {
		return nil, 0, ErrFinalized
	}
	if p.cfg.maxPages > 0 && len(p.pages) >= p.cfg.maxPages {
		return nil, 0, fmt.Errorf("%w: page limit %d reached", ErrResourceExhausted, p.cfg.maxPages)
	}

	index := uint64(len(p.pages))
	if index > (^uint64(0))>>p.pageShift {
		return nil, 0, fmt.Errorf("%w: page index overflow", ErrResourceExhausted)
	}

	bytes := int64(capacity) * int64(p.elemSize)
	if p.cfg.acquirer != nil {
		if err := p.cfg.acquirer.AcquireMemory(bytes); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
		}
	}

	page := make([]T, capacity)
	p.pages = append(p.pages, page)

	p.stats.Pages.Add(1)
	p.stats.BytesReserved.Add(uint64(bytes)) //nolint:gosec // bytes >= 0
	if capacity > p.pageSize {
		p.stats.OversizedPages.Add(1)
	}
	return page, index, nil
}

// IntoPages finalizes the list into an immutable Pages value.
// It must be called exactly once, after every allocator has been closed.
func (p *PageList[T]) IntoPages() (*Pages[T], error) {
	if n := p.open.Load(); n > 0 {
		return nil, fmt.Errorf("%w: %d", ErrOpenAllocators, n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finalized {
		return nil, ErrFinalized
	}
	p.finalized = true

	pages := p.pages
	p.pages = nil

	return &Pages[T]{
		pages:     pages,
		pageShift: p.pageShift,
		pageMask:  uint64(p.pageSize - 1), //nolint:gosec // pageSize > 0
		reserved:  int64(p.stats.BytesReserved.Load()), //nolint:gosec // bounded by allocated memory
		acquirer:  p.cfg.acquirer,
	}, nil
}

// Allocator is a bump allocator over the pages of a PageList.
type Allocator[T Element] struct {
	list      *PageList[T]
	page      []T
	pageIndex uint64
	top       int
	closed    bool

	_ cpu.CacheLinePad
}

// Write copies length elements of data into allocator owned memory and
// returns the global offset of the region. The region never spans pages.
func (a *Allocator[T]) Write(data []T, length int) (uint64, error) {
	if a.closed {
		return 0, ErrAllocatorClosed
	}
	if length < 0 || length > len(data) {
		return 0, fmt.Errorf("arena: invalid write length %d for %d elements", length, len(data))
	}
	if length == 0 {
		return 0, nil
	}

	var (
		page   []T
		index  uint64
		offset int
	)

	switch {
	case length > a.list.pageSize:
		// Oversized writes get their own page and leave the current page
		// untouched so that smaller writes can still fill it.
		p, idx, err := a.list.newPage(length)
		if err != nil {
			return 0, err
		}
		page, index, offset = p, idx, 0
	case a.page == nil || a.top+length > len(a.page):
		p, idx, err := a.list.newPage(a.list.pageSize)
		if err != nil {
			return 0, err
		}
		a.page, a.pageIndex, a.top = p, idx, 0
		fallthrough
	default:
		page, index, offset = a.page, a.pageIndex, a.top
		a.top += length
	}

	copy(page[offset:offset+length], data[:length])

	a.list.stats.Writes.Add(1)
	a.list.stats.BytesUsed.Add(uint64(length) * uint64(a.list.elemSize)) //nolint:gosec // length > 0

	return index<<a.list.pageShift | uint64(offset), nil //nolint:gosec // offset < pageSize
}

// Close releases the allocator's reference to its current page.
// It is idempotent.
func (a *Allocator[T]) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.page = nil
	a.list.open.Add(-1)
}

// Pages is the immutable result of a PageList. It is safe for concurrent reads.
type Pages[T Element] struct {
	pages     [][]T
	pageShift uint
	pageMask  uint64

	reserved int64
	acquirer MemoryAcquirer
	released atomic.Bool
}

// From returns the page tail starting at offset.
func (p *Pages[T]) From(offset uint64) []T {
	page := p.pages[offset>>p.pageShift]
	return page[offset&p.pageMask:]
}

// Slice returns the length elements stored at offset.
func (p *Pages[T]) Slice(offset uint64, length int) []T {
	start := offset & p.pageMask
	return p.pages[offset>>p.pageShift][start : start+uint64(length)] //nolint:gosec // length >= 0
}

// SizeInBytes returns the reserved page memory.
func (p *Pages[T]) SizeInBytes() int64 {
	return p.reserved
}

// Release returns the accounted page memory to the acquirer. The pages stay
// readable; only the accounting is dropped. It is idempotent.
func (p *Pages[T]) Release() {
	if p.acquirer == nil || !p.released.CompareAndSwap(false, true) {
		return
	}
	p.acquirer.ReleaseMemory(p.reserved)
}
