// Package radix implements a stable LSD radix sort over node id pairs.
//
// Edges are stored as interleaved (source, target) pairs in one slice, with
// two parallel slices of opaque 64-bit references. Sorting permutes all
// three in lock-step and keeps the relative order of equal keys.
package radix

import "math/bits"

// Key selects which endpoint of a pair the sort orders by.
type Key int

const (
	// BySource orders pairs by their first element.
	BySource Key = iota
	// ByTarget orders pairs by their second element.
	ByTarget
)

const (
	digitBits = 8
	buckets   = 1 << digitBits
	digitMask = buckets - 1
)

// Scratch holds the copy buffers a sort needs. It is reused across sorts
// and must not be shared between goroutines.
type Scratch struct {
	pairs     []uint64
	refs      []uint64
	props     []uint64
	histogram [buckets + 1]int
}

// NewScratch creates scratch space for sorting up to n pairs.
func NewScratch(n int) *Scratch {
	s := &Scratch{}
	s.ensure(n)
	return s
}

func (s *Scratch) ensure(n int) {
	if cap(s.pairs) < 2*n {
		s.pairs = make([]uint64, 2*n)
	}
	if cap(s.refs) < n {
		s.refs = make([]uint64, n)
		s.props = make([]uint64, n)
	}
	s.pairs = s.pairs[:2*n]
	s.refs = s.refs[:n]
	s.props = s.props[:n]
}

// Sort orders the first n pairs of pairs by key, permuting refs and props
// the same way. refs and props may be nil when the caller does not carry them.
func Sort(pairs, refs, props []uint64, n int, key Key, s *Scratch) {
	if n < 2 {
		return
	}
	if s == nil {
		s = NewScratch(n)
	}
	s.ensure(n)

	k := int(key)

	var maxKey uint64
	for i := 0; i < n; i++ {
		maxKey |= pairs[2*i+k]
	}
	passes := (bits.Len64(maxKey) + digitBits - 1) / digitBits

	srcPairs, dstPairs := pairs[:2*n], s.pairs
	var srcRefs, dstRefs, srcProps, dstProps []uint64
	if refs != nil {
		srcRefs, dstRefs = refs[:n], s.refs
	}
	if props != nil {
		srcProps, dstProps = props[:n], s.props
	}

	for pass := 0; pass < passes; pass++ {
		shift := uint(pass * digitBits) //nolint:gosec // pass is small

		hist := &s.histogram
		clear(hist[:])
		for i := 0; i < n; i++ {
			hist[1+int((srcPairs[2*i+k]>>shift)&digitMask)]++
		}
		for b := 0; b < buckets; b++ {
			hist[b+1] += hist[b]
		}

		for i := 0; i < n; i++ {
			d := int((srcPairs[2*i+k] >> shift) & digitMask)
			pos := hist[d]
			hist[d]++

			dstPairs[2*pos] = srcPairs[2*i]
			dstPairs[2*pos+1] = srcPairs[2*i+1]
			if srcRefs != nil {
				dstRefs[pos] = srcRefs[i]
			}
			if srcProps != nil {
				dstProps[pos] = srcProps[i]
			}
		}

		srcPairs, dstPairs = dstPairs, srcPairs
		srcRefs, dstRefs = dstRefs, srcRefs
		srcProps, dstProps = dstProps, srcProps
	}

	// after an odd number of passes the result lives in the scratch buffers
	if passes%2 == 1 {
		copy(pairs[:2*n], srcPairs)
		if refs != nil {
			copy(refs[:n], srcRefs)
		}
		if props != nil {
			copy(props[:n], srcProps)
		}
	}
}
