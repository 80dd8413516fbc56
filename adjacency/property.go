package adjacency

import (
	"math"

	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/model"
)

// PropertyList stores one relationship property column. The values of a
// node are aligned with the node's targets.
type PropertyList struct {
	name         string
	aggregation  model.Aggregation
	defaultValue float64

	degrees []uint32
	offsets []uint64
	pages   *arena.Pages[uint64]
}

// Name returns the property name.
func (p *PropertyList) Name() string { return p.name }

// Aggregation returns the resolved aggregation of the column.
func (p *PropertyList) Aggregation() model.Aggregation { return p.aggregation }

// DefaultValue returns the value used for relationships without the property.
func (p *PropertyList) DefaultValue() float64 { return p.defaultValue }

// Values returns the raw property words of node without copying.
func (p *PropertyList) Values(node uint64) []uint64 {
	degree := int(p.degrees[node])
	if degree == 0 {
		return nil
	}
	return p.pages.Slice(p.offsets[node], degree)
}

// Value returns the i-th property value of node.
func (p *PropertyList) Value(node uint64, i int) float64 {
	return math.Float64frombits(p.Values(node)[i])
}

// Cursor returns a cursor over the property values of node.
func (p *PropertyList) Cursor(node uint64) *PropertyCursor {
	return &PropertyCursor{values: p.Values(node)}
}

// SizeInBytes returns the memory held by the property pages.
func (p *PropertyList) SizeInBytes() int64 { return p.pages.SizeInBytes() }

// Release returns the accounted page memory.
func (p *PropertyList) Release() { p.pages.Release() }

// PropertyCursor iterates the property values of one node in target order.
type PropertyCursor struct {
	values []uint64
	pos    int
}

// HasNext reports whether another value is available.
func (c *PropertyCursor) HasNext() bool { return c.pos < len(c.values) }

// Remaining returns the number of values not yet returned.
func (c *PropertyCursor) Remaining() int { return len(c.values) - c.pos }

// Next returns the next value. It panics when the cursor is exhausted.
func (c *PropertyCursor) Next() float64 {
	v := c.values[c.pos]
	c.pos++
	return math.Float64frombits(v)
}

// NextBits returns the next value as its raw word.
func (c *PropertyCursor) NextBits() uint64 {
	v := c.values[c.pos]
	c.pos++
	return v
}
