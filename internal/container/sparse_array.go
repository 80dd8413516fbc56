package container

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/csrgo/model"
)

const (
	sparsePageBits = 12
	sparsePageSize = 1 << sparsePageBits
	sparsePageMask = sparsePageSize - 1
)

// ErrOutOfRange is returned for indexes beyond the capacity.
var ErrOutOfRange = errors.New("container: index out of range")

type sparsePage [sparsePageSize]atomic.Uint64

// SparseArray maps indexes in [0, capacity) to uint64 values. Pages and the
// directory above them are allocated on first write, so a few huge indexes
// cost a few pages. All methods are safe for concurrent use.
//
// Values are stored shifted by one so that the zero word means absent;
// model.NotFound therefore cannot be stored.
type SparseArray struct {
	capacity uint64
	pages    *Directory[sparsePage]
}

// NewSparseArray creates a SparseArray for indexes in [0, capacity).
func NewSparseArray(capacity uint64) *SparseArray {
	return &SparseArray{
		capacity: capacity,
		pages:    NewDirectory[sparsePage](),
	}
}

// SizeInBytes returns the memory held by the allocated pages.
func (s *SparseArray) SizeInBytes() int64 {
	return int64(s.pages.Leaves()) * sparsePageSize * 8
}

// Set stores value at index, overwriting any previous value.
func (s *SparseArray) Set(index, value uint64) error {
	if index >= s.capacity {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, index, s.capacity)
	}
	s.pages.LeafOrCreate(index >> sparsePageBits)[index&sparsePageMask].Store(value + 1)
	return nil
}

// SetIfAbsent stores value at index unless a value is already present.
// It reports whether the value was stored.
func (s *SparseArray) SetIfAbsent(index, value uint64) (bool, error) {
	if index >= s.capacity {
		return false, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, index, s.capacity)
	}
	return s.pages.LeafOrCreate(index >> sparsePageBits)[index&sparsePageMask].CompareAndSwap(0, value+1), nil
}

// Get returns the value at index or model.NotFound.
func (s *SparseArray) Get(index uint64) uint64 {
	if index >= s.capacity {
		return model.NotFound
	}
	p := s.pages.Leaf(index >> sparsePageBits)
	if p == nil {
		return model.NotFound
	}
	v := p[index&sparsePageMask].Load()
	if v == 0 {
		return model.NotFound
	}
	return v - 1
}

// Contains reports whether index holds a value.
func (s *SparseArray) Contains(index uint64) bool {
	return s.Get(index) != model.NotFound
}
