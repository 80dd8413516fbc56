// Package batch implements the fixed capacity staging buffer for raw
// relationship tuples.
//
// A Buffer stores (source, target) pairs interleaved in one slice together
// with two parallel slices of opaque references: the relationship reference
// and the property reference. Sorting by source or target permutes all three
// in lock-step so that every run of equal keys belongs to one node.
package batch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/csrgo/internal/radix"
	"github.com/hupe1980/csrgo/model"
)

// AnyType accepts relationships of every type.
const AnyType int32 = -1

var (
	// ErrFull is returned by Offer when the buffer must be drained first.
	ErrFull = errors.New("batch: buffer full")
	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("batch: capacity must be positive")
)

// ErrUnmappedNode is returned in strict mode for an endpoint that has no
// internal id.
type ErrUnmappedNode struct {
	Source uint64
	Target uint64
}

func (e *ErrUnmappedNode) Error() string {
	return fmt.Sprintf("batch: relationship (%s)->(%s) references an unmapped node", idString(e.Source), idString(e.Target))
}

func idString(id uint64) string {
	if id == model.NotFound {
		return "NOT_FOUND"
	}
	return fmt.Sprintf("%d", id)
}

// Edge is a raw relationship tuple in the internal id space.
type Edge struct {
	Source  uint64
	Target  uint64
	Type    int32
	RelRef  uint64
	PropRef uint64
}

// Config configures a Buffer.
type Config struct {
	// Capacity is the number of relationships the buffer holds.
	Capacity int
	// NodeCount bounds valid node ids to [0, NodeCount).
	NodeCount uint64
	// Type filters offered relationships; AnyType accepts all.
	Type int32
	// FailOnUnmapped makes Offer return ErrUnmappedNode instead of
	// dropping relationships with out-of-range endpoints.
	FailOnUnmapped bool
}

// Buffer is a fixed capacity relationship staging buffer. It is not safe for
// concurrent use; every loader goroutine owns its own buffer.
type Buffer struct {
	cfg Config

	pairs  []uint64
	refs   []uint64
	props  []uint64
	length int

	dropped  uint64
	filtered uint64

	scratch *radix.Scratch
}

// New creates a Buffer. It allocates 2 x Capacity slots for the endpoint
// pairs and Capacity slots for each reference slice.
func New(cfg Config) (*Buffer, error) {
	if cfg.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{
		cfg:     cfg,
		pairs:   make([]uint64, 2*cfg.Capacity),
		refs:    make([]uint64, cfg.Capacity),
		props:   make([]uint64, cfg.Capacity),
		scratch: radix.NewScratch(cfg.Capacity),
	}, nil
}

// Offer appends e if it matches the type filter. It reports whether the
// relationship was stored. Relationships with unmapped endpoints are dropped,
// or rejected with ErrUnmappedNode in strict mode.
func (b *Buffer) Offer(e Edge) (bool, error) {
	if b.cfg.Type != AnyType && e.Type != b.cfg.Type {
		b.filtered++
		return false, nil
	}
	if e.Source >= b.cfg.NodeCount || e.Target >= b.cfg.NodeCount {
		if b.cfg.FailOnUnmapped {
			return false, &ErrUnmappedNode{Source: e.Source, Target: e.Target}
		}
		b.dropped++
		return false, nil
	}
	if b.length == b.cfg.Capacity {
		return false, ErrFull
	}

	i := b.length
	b.pairs[2*i] = e.Source
	b.pairs[2*i+1] = e.Target
	b.refs[i] = e.RelRef
	b.props[i] = e.PropRef
	b.length++
	return true, nil
}

// Len returns the number of buffered relationships.
func (b *Buffer) Len() int { return b.length }

// Cap returns the capacity.
func (b *Buffer) Cap() int { return b.cfg.Capacity }

// IsFull reports whether the buffer must be drained before the next Offer.
func (b *Buffer) IsFull() bool { return b.length == b.cfg.Capacity }

// IsEmpty reports whether the buffer holds no relationships.
func (b *Buffer) IsEmpty() bool { return b.length == 0 }

// Dropped returns the number of relationships dropped for unmapped endpoints.
func (b *Buffer) Dropped() uint64 { return b.dropped }

// Filtered returns the number of relationships rejected by the type filter.
func (b *Buffer) Filtered() uint64 { return b.filtered }

// SortBySource orders the buffered relationships by ascending source id.
func (b *Buffer) SortBySource() {
	radix.Sort(b.pairs, b.refs, b.props, b.length, radix.BySource, b.scratch)
}

// SortByTarget orders the buffered relationships by ascending target id.
func (b *Buffer) SortByTarget() {
	radix.Sort(b.pairs, b.refs, b.props, b.length, radix.ByTarget, b.scratch)
}

// Source returns the source of the i-th relationship.
func (b *Buffer) Source(i int) uint64 { return b.pairs[2*i] }

// Target returns the target of the i-th relationship.
func (b *Buffer) Target(i int) uint64 { return b.pairs[2*i+1] }

// RelRef returns the relationship reference of the i-th relationship.
func (b *Buffer) RelRef(i int) uint64 { return b.refs[i] }

// PropRef returns the property reference of the i-th relationship.
func (b *Buffer) PropRef(i int) uint64 { return b.props[i] }

// Runs calls fn for every maximal run [start, end) of relationships sharing
// the same key endpoint. The buffer must be sorted by that key.
func (b *Buffer) Runs(key radix.Key, fn func(node uint64, start, end int) error) error {
	k := int(key)
	for start := 0; start < b.length; {
		node := b.pairs[2*start+k]
		end := start + 1
		for end < b.length && b.pairs[2*end+k] == node {
			end++
		}
		if err := fn(node, start, end); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// Reset empties the buffer for reuse.
func (b *Buffer) Reset() {
	b.length = 0
}
