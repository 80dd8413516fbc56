package adjacency

import (
	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/varint"
	"github.com/hupe1980/csrgo/model"
)

// AdjacencyList is the read side of a built adjacency. Targets of a node
// are returned in ascending order.
type AdjacencyList interface {
	// NodeCount returns the number of source nodes.
	NodeCount() uint64
	// Degree returns the number of targets of node.
	Degree(node uint64) uint32
	// Cursor returns a cursor over the targets of node.
	Cursor(node uint64) Cursor
	// ForEachTarget calls fn for every target of node until fn returns false.
	ForEachTarget(node uint64, fn func(target uint64) bool)
	// SizeInBytes returns the memory held by the target pages.
	SizeInBytes() int64
	// Release returns the accounted page memory.
	Release()
}

// Cursor iterates the ascending targets of one node.
type Cursor interface {
	// HasNext reports whether another target is available.
	HasNext() bool
	// Next returns the next target, or model.NotFound when exhausted.
	Next() uint64
	// PeekNext returns the next target without consuming it.
	PeekNext() uint64
	// Remaining returns the number of targets not yet returned by Next.
	Remaining() int
	// Advance consumes targets up to and including the first target >= target
	// and returns it, or model.NotFound.
	Advance(target uint64) uint64
	// AdvanceBy skips n targets and returns the next one, or model.NotFound.
	AdvanceBy(n int) uint64
}

var (
	_ AdjacencyList = (*CompressedList)(nil)
	_ AdjacencyList = (*RawList)(nil)
	_ Cursor        = (*DeltaCursor)(nil)
	_ Cursor        = (*RawCursor)(nil)
)

// CompressedList stores the targets of every node as delta encoded varints.
type CompressedList struct {
	degrees []uint32
	offsets []uint64
	pages   *arena.Pages[byte]
}

// NodeCount returns the number of source nodes.
func (l *CompressedList) NodeCount() uint64 { return uint64(len(l.degrees)) }

// Degree returns the number of targets of node.
func (l *CompressedList) Degree(node uint64) uint32 { return l.degrees[node] }

// Cursor returns a cursor over the targets of node.
func (l *CompressedList) Cursor(node uint64) Cursor {
	c := &DeltaCursor{}
	l.InitCursor(c, node)
	return c
}

// InitCursor positions c at the first target of node. Reusing one cursor
// across nodes avoids an allocation per node.
func (l *CompressedList) InitCursor(c *DeltaCursor, node uint64) {
	degree := int(l.degrees[node])
	*c = DeltaCursor{remaining: degree}
	if degree > 0 {
		c.data = l.pages.From(l.offsets[node])
	}
}

// ForEachTarget calls fn for every target of node until fn returns false.
func (l *CompressedList) ForEachTarget(node uint64, fn func(target uint64) bool) {
	var c DeltaCursor
	l.InitCursor(&c, node)
	for c.HasNext() {
		if !fn(c.Next()) {
			return
		}
	}
}

// SizeInBytes returns the memory held by the target pages.
func (l *CompressedList) SizeInBytes() int64 { return l.pages.SizeInBytes() }

// Release returns the accounted page memory.
func (l *CompressedList) Release() { l.pages.Release() }

// DeltaCursor decodes delta encoded varints on the fly.
type DeltaCursor struct {
	data      []byte
	pos       int
	last      uint64
	remaining int
}

// HasNext reports whether another target is available.
func (c *DeltaCursor) HasNext() bool { return c.remaining > 0 }

// Remaining returns the number of targets not yet returned.
func (c *DeltaCursor) Remaining() int { return c.remaining }

// Next returns the next target, or model.NotFound when exhausted.
func (c *DeltaCursor) Next() uint64 {
	if c.remaining == 0 {
		return model.NotFound
	}
	delta, n := varint.Next(c.data[c.pos:])
	c.pos += n
	c.last += delta
	c.remaining--
	return c.last
}

// PeekNext returns the next target without consuming it.
func (c *DeltaCursor) PeekNext() uint64 {
	if c.remaining == 0 {
		return model.NotFound
	}
	delta, _ := varint.Next(c.data[c.pos:])
	return c.last + delta
}

// Advance consumes targets up to the first target >= target and returns it.
func (c *DeltaCursor) Advance(target uint64) uint64 {
	for c.remaining > 0 {
		if t := c.Next(); t >= target {
			return t
		}
	}
	return model.NotFound
}

// AdvanceBy skips n targets and returns the next one.
func (c *DeltaCursor) AdvanceBy(n int) uint64 {
	for ; n > 0 && c.remaining > 0; n-- {
		c.Next()
	}
	return c.Next()
}

// RawList stores the targets of every node as plain words.
type RawList struct {
	degrees []uint32
	offsets []uint64
	pages   *arena.Pages[uint64]
}

// NodeCount returns the number of source nodes.
func (l *RawList) NodeCount() uint64 { return uint64(len(l.degrees)) }

// Degree returns the number of targets of node.
func (l *RawList) Degree(node uint64) uint32 { return l.degrees[node] }

// Targets returns the targets of node without copying.
func (l *RawList) Targets(node uint64) []uint64 {
	degree := int(l.degrees[node])
	if degree == 0 {
		return nil
	}
	return l.pages.Slice(l.offsets[node], degree)
}

// Cursor returns a cursor over the targets of node.
func (l *RawList) Cursor(node uint64) Cursor {
	return &RawCursor{targets: l.Targets(node)}
}

// ForEachTarget calls fn for every target of node until fn returns false.
func (l *RawList) ForEachTarget(node uint64, fn func(target uint64) bool) {
	for _, t := range l.Targets(node) {
		if !fn(t) {
			return
		}
	}
}

// SizeInBytes returns the memory held by the target pages.
func (l *RawList) SizeInBytes() int64 { return l.pages.SizeInBytes() }

// Release returns the accounted page memory.
func (l *RawList) Release() { l.pages.Release() }

// RawCursor reads plain target words.
type RawCursor struct {
	targets []uint64
	pos     int
}

// HasNext reports whether another target is available.
func (c *RawCursor) HasNext() bool { return c.pos < len(c.targets) }

// Remaining returns the number of targets not yet returned.
func (c *RawCursor) Remaining() int { return len(c.targets) - c.pos }

// Next returns the next target, or model.NotFound when exhausted.
func (c *RawCursor) Next() uint64 {
	if c.pos == len(c.targets) {
		return model.NotFound
	}
	t := c.targets[c.pos]
	c.pos++
	return t
}

// PeekNext returns the next target without consuming it.
func (c *RawCursor) PeekNext() uint64 {
	if c.pos == len(c.targets) {
		return model.NotFound
	}
	return c.targets[c.pos]
}

// Advance consumes targets up to the first target >= target and returns it.
func (c *RawCursor) Advance(target uint64) uint64 {
	for c.pos < len(c.targets) {
		if t := c.Next(); t >= target {
			return t
		}
	}
	return model.NotFound
}

// AdvanceBy skips n targets and returns the next one.
func (c *RawCursor) AdvanceBy(n int) uint64 {
	c.pos = min(c.pos+max(n, 0), len(c.targets))
	return c.Next()
}
