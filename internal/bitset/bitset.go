package bitset

import (
	"math/bits"
	"sync/atomic"

	"github.com/hupe1980/csrgo/internal/container"
)

const (
	// 65536 bits per segment
	segmentBits     = 16
	segmentMask     = 1<<segmentBits - 1
	wordsPerSegment = 1 << (segmentBits - 6)
)

type segment [wordsPerSegment]atomic.Uint64

// BitSet is a sparse bitset over the full uint64 index space. Segments are
// created when a bit in them is first set. Set and Test are safe for
// concurrent use.
type BitSet struct {
	segments *container.Directory[segment]
}

// New creates an empty BitSet.
func New() *BitSet {
	return &BitSet{segments: container.NewDirectory[segment]()}
}

// Set sets bit i.
func (b *BitSet) Set(i uint64) {
	seg := b.segments.LeafOrCreate(i >> segmentBits)
	offset := i & segmentMask
	seg[offset>>6].Or(1 << (offset & 63))
}

// Test reports whether bit i is set.
func (b *BitSet) Test(i uint64) bool {
	seg := b.segments.Leaf(i >> segmentBits)
	if seg == nil {
		return false
	}
	offset := i & segmentMask
	return seg[offset>>6].Load()&(1<<(offset&63)) != 0
}

// ForEach calls fn for every set bit in ascending order until fn returns
// false. It must not run concurrently with Set.
func (b *BitSet) ForEach(fn func(i uint64) bool) {
	b.segments.ForEachLeaf(func(slot uint64, seg *segment) bool {
		base := slot << segmentBits
		for w := range seg {
			word := seg[w].Load()
			for word != 0 {
				bit := uint64(bits.TrailingZeros64(word))
				if !fn(base | uint64(w)<<6 | bit) { //nolint:gosec // w < wordsPerSegment
					return false
				}
				word &= word - 1
			}
		}
		return true
	})
}
