package container

import (
	"sync"
	"sync/atomic"
)

const (
	// segmentBits determines the size of each segment.
	// 16 bits = 65536 items per segment.
	segmentBits = 16
	segmentSize = 1 << segmentBits
	segmentMask = segmentSize - 1
)

// SegmentedArray is a thread-safe, segmented array.
// Concurrent writers must target distinct indexes; growth is serialized.
type SegmentedArray[T any] struct {
	segments atomic.Pointer[[]*Segment[T]]
	mu       sync.Mutex // Protects growth
}

// Segment is a fixed-size array of items.
type Segment[T any] struct {
	items [segmentSize]T
}

// NewSegmentedArray creates a new SegmentedArray.
func NewSegmentedArray[T any]() *SegmentedArray[T] {
	sa := &SegmentedArray[T]{}
	segments := make([]*Segment[T], 0)
	sa.segments.Store(&segments)
	return sa
}

// Set sets the item at the given index, growing the array if necessary.
func (sa *SegmentedArray[T]) Set(index uint64, value T) {
	sa.segment(index).items[index&segmentMask] = value
}

// Reserve makes sure every index below n is backed by a segment.
func (sa *SegmentedArray[T]) Reserve(n uint64) {
	if n == 0 {
		return
	}
	sa.segment(n - 1)
}

func (sa *SegmentedArray[T]) segment(index uint64) *Segment[T] {
	segIdx := index >> segmentBits

	// Fast path: check if segment exists
	segments := *sa.segments.Load()
	if segIdx < uint64(len(segments)) && segments[segIdx] != nil {
		return segments[segIdx]
	}

	// Slow path: grow
	sa.mu.Lock()
	defer sa.mu.Unlock()

	current := *sa.segments.Load()
	if segIdx < uint64(len(current)) && current[segIdx] != nil {
		return current[segIdx]
	}

	grown := current
	if segIdx >= uint64(len(grown)) {
		grown = make([]*Segment[T], segIdx+1)
		copy(grown, current)
	}
	for i := range grown {
		if grown[i] == nil {
			grown[i] = &Segment[T]{}
		}
	}

	sa.segments.Store(&grown)
	return grown[segIdx]
}

// CopyTo copies the first len(dst) items into dst. Unallocated segments
// read as zero values.
func (sa *SegmentedArray[T]) CopyTo(dst []T) {
	segments := *sa.segments.Load()
	for pos := 0; pos < len(dst); pos += segmentSize {
		end := min(pos+segmentSize, len(dst))
		segIdx := pos >> segmentBits
		if segIdx < len(segments) && segments[segIdx] != nil {
			copy(dst[pos:end], segments[segIdx].items[:end-pos])
		} else {
			clear(dst[pos:end])
		}
	}
}
