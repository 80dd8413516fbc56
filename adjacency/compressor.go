package adjacency

import (
	"fmt"

	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/conv"
	"github.com/hupe1980/csrgo/internal/varint"
)

// Compressor compresses the relationships of one node at a time. A
// Compressor is owned by one goroutine; create one per worker with
// Factory.CreateCompressor and Close it when the worker is done.
type Compressor interface {
	// Compress decodes e through mapper, sorts and aggregates the targets,
	// writes them and their property values and records the node's degree
	// and offsets. A nil e records an empty node. It returns the degree.
	Compress(node uint64, e *Entry, mapper ValueMapper) (uint32, error)
	// Close releases the compressor's pages. It is idempotent.
	Close()
}

var (
	_ Compressor = (*deltaCompressor)(nil)
	_ Compressor = (*rawCompressor)(nil)
)

// compressorBase holds what both strategies share: the workspace and one
// allocator per property column.
type compressorBase struct {
	factory *Factory
	ws      *workspace
	props   []*arena.Allocator[uint64]
	closed  bool
}

func newCompressorBase(f *Factory) compressorBase {
	props := make([]*arena.Allocator[uint64], len(f.propPages))
	for i, pl := range f.propPages {
		props[i] = pl.NewAllocator()
	}
	return compressorBase{
		factory: f,
		ws:      newWorkspace(len(f.propPages)),
		props:   props,
	}
}

// prepare loads, sorts and aggregates e and returns the degree.
func (c *compressorBase) prepare(node uint64, e *Entry, mapper ValueMapper) (int, error) {
	if node >= c.factory.cfg.NodeCount {
		return 0, &ErrNodeOutOfRange{Node: node, NodeCount: c.factory.cfg.NodeCount}
	}
	if e == nil || e.Count == 0 {
		return 0, nil
	}

	n, err := c.ws.load(node, e, mapFunc(mapper))
	if err != nil {
		return 0, fmt.Errorf("adjacency: node %d: %w", node, err)
	}
	return c.ws.sortAndAggregate(n, c.factory.aggs, c.factory.merge), nil
}

// finish writes the property columns and records the node.
func (c *compressorBase) finish(node uint64, degree int, offset uint64) (uint32, error) {
	d, err := conv.IntToUint32(degree)
	if err != nil {
		return 0, fmt.Errorf("adjacency: node %d: %w", node, err)
	}

	f := c.factory
	for i, alloc := range c.props {
		var off uint64
		if degree > 0 {
			off, err = alloc.Write(c.ws.props[i], degree)
			if err != nil {
				return 0, err
			}
		}
		f.propOffsets[i][node] = off
	}

	f.degrees[node] = d
	f.offsets[node] = offset
	f.relationships.Add(uint64(d))
	return d, nil
}

func (c *compressorBase) close() bool {
	if c.closed {
		return false
	}
	c.closed = true
	for _, alloc := range c.props {
		alloc.Close()
	}
	c.factory.open.Add(-1)
	return true
}

// deltaCompressor stores targets as delta encoded varints.
type deltaCompressor struct {
	compressorBase
	targets *arena.Allocator[byte]
	encoded []byte
}

func (c *deltaCompressor) Compress(node uint64, e *Entry, mapper ValueMapper) (uint32, error) {
	degree, err := c.prepare(node, e, mapper)
	if err != nil {
		return 0, err
	}

	var offset uint64
	if degree > 0 {
		targets := c.ws.targets[:degree]

		// mapped ids may need more bytes than the buffered ones
		size := varint.DeltasSize(targets)
		if cap(c.encoded) < size {
			c.encoded = make([]byte, max(size, 2*cap(c.encoded)))
		}
		c.encoded = c.encoded[:size]
		written := varint.PutDeltas(c.encoded, targets)

		offset, err = c.targets.Write(c.encoded, written)
		if err != nil {
			return 0, err
		}
	}
	return c.finish(node, degree, offset)
}

func (c *deltaCompressor) Close() {
	if c.close() {
		c.targets.Close()
	}
}

// rawCompressor stores targets as plain words.
type rawCompressor struct {
	compressorBase
	targets *arena.Allocator[uint64]
}

func (c *rawCompressor) Compress(node uint64, e *Entry, mapper ValueMapper) (uint32, error) {
	degree, err := c.prepare(node, e, mapper)
	if err != nil {
		return 0, err
	}

	var offset uint64
	if degree > 0 {
		offset, err = c.targets.Write(c.ws.targets, degree)
		if err != nil {
			return 0, err
		}
	}
	return c.finish(node, degree, offset)
}

func (c *rawCompressor) Close() {
	if c.close() {
		c.targets.Close()
	}
}
