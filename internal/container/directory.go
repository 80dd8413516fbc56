package container

import "sync/atomic"

const (
	dirBits   = 10
	dirFanout = 1 << dirBits
	dirMask   = dirFanout - 1
)

// Directory maps 64-bit slot numbers to leaves of type L that are created on
// first use. Inner nodes are created along the path to a leaf and the tree
// gains height only when a larger slot is touched, so the memory held
// follows the number of distinct leaves rather than the largest slot.
//
// All methods are safe for concurrent use.
type Directory[L any] struct {
	root   atomic.Pointer[dirRoot[L]]
	leaves atomic.Int64
}

type dirRoot[L any] struct {
	node *dirNode[L]
	// height is the number of node levels; at height 1 the root holds leaves.
	height int
}

// dirNode holds either children or leaves, depending on its level.
type dirNode[L any] struct {
	children []atomic.Pointer[dirNode[L]]
	leaves   []atomic.Pointer[L]
}

func newDirNode[L any](leafLevel bool) *dirNode[L] {
	if leafLevel {
		return &dirNode[L]{leaves: make([]atomic.Pointer[L], dirFanout)}
	}
	return &dirNode[L]{children: make([]atomic.Pointer[dirNode[L]], dirFanout)}
}

// NewDirectory creates an empty Directory.
func NewDirectory[L any]() *Directory[L] {
	d := &Directory[L]{}
	d.root.Store(&dirRoot[L]{node: newDirNode[L](true), height: 1})
	return d
}

func (r *dirRoot[L]) covers(slot uint64) bool {
	span := uint(r.height * dirBits) //nolint:gosec // height <= 7
	return span >= 64 || slot>>span == 0
}

func childIndex(slot uint64, height int) uint64 {
	return (slot >> uint((height-1)*dirBits)) & dirMask //nolint:gosec // height >= 2
}

// Leaves returns the number of created leaves.
func (d *Directory[L]) Leaves() int {
	return int(d.leaves.Load())
}

// Leaf returns the leaf of slot, or nil if it was never created.
func (d *Directory[L]) Leaf(slot uint64) *L {
	r := d.root.Load()
	if !r.covers(slot) {
		return nil
	}
	n := r.node
	for h := r.height; h > 1; h-- {
		if n = n.children[childIndex(slot, h)].Load(); n == nil {
			return nil
		}
	}
	return n.leaves[slot&dirMask].Load()
}

// LeafOrCreate returns the leaf of slot and creates it if needed. Concurrent
// callers for the same slot receive the same leaf.
func (d *Directory[L]) LeafOrCreate(slot uint64) *L {
	r := d.grow(slot)
	n := r.node
	for h := r.height; h > 1; h-- {
		p := &n.children[childIndex(slot, h)]
		next := p.Load()
		if next == nil {
			fresh := newDirNode[L](h == 2)
			if p.CompareAndSwap(nil, fresh) {
				next = fresh
			} else {
				next = p.Load()
			}
		}
		n = next
	}

	p := &n.leaves[slot&dirMask]
	if leaf := p.Load(); leaf != nil {
		return leaf
	}
	fresh := new(L)
	if p.CompareAndSwap(nil, fresh) {
		d.leaves.Add(1)
		return fresh
	}
	return p.Load()
}

// grow raises the tree until its root covers slot. The old root becomes the
// first child of the new one, so writers still holding it stay valid.
func (d *Directory[L]) grow(slot uint64) *dirRoot[L] {
	for {
		r := d.root.Load()
		if r.covers(slot) {
			return r
		}
		taller := &dirRoot[L]{node: newDirNode[L](false), height: r.height + 1}
		taller.node.children[0].Store(r.node)
		d.root.CompareAndSwap(r, taller)
	}
}

// ForEachLeaf calls fn for every created leaf in ascending slot order until
// fn returns false.
func (d *Directory[L]) ForEachLeaf(fn func(slot uint64, leaf *L) bool) {
	r := d.root.Load()
	walkDir(r.node, r.height, 0, fn)
}

func walkDir[L any](n *dirNode[L], height int, base uint64, fn func(uint64, *L) bool) bool {
	if height == 1 {
		for i := range n.leaves {
			if leaf := n.leaves[i].Load(); leaf != nil && !fn(base|uint64(i), leaf) { //nolint:gosec // i < dirFanout
				return false
			}
		}
		return true
	}

	shift := uint((height - 1) * dirBits) //nolint:gosec // height >= 2
	for i := range n.children {
		child := n.children[i].Load()
		if child == nil {
			continue
		}
		if !walkDir(child, height-1, base|uint64(i)<<shift, fn) { //nolint:gosec // i < dirFanout
			return false
		}
	}
	return true
}
