package adjacency

import (
	"sync"

	"github.com/hupe1980/csrgo/internal/varint"
)

const (
	bufferLockShift = 6
	bufferLocks     = 1 << 10
)

// Entry holds the relationships of one node that are waiting for
// compression. Targets are plain varints in arrival order; Properties holds
// one slice of Count words per property column.
type Entry struct {
	Targets    []byte
	Count      int
	Properties [][]uint64
}

// Buffer collects the relationships of every node until compression.
// Concurrent loaders may append to the same node; appends to nodes in the
// same stripe of 64 consecutive ids share a lock.
type Buffer struct {
	columns int
	entries []*Entry
	locks   [bufferLocks]sync.Mutex
}

// NewBuffer creates a Buffer for nodeCount nodes with the given number of
// property columns.
func NewBuffer(nodeCount uint64, columns int) *Buffer {
	return &Buffer{
		columns: columns,
		entries: make([]*Entry, nodeCount),
	}
}

// NodeCount returns the number of nodes.
func (b *Buffer) NodeCount() uint64 {
	return uint64(len(b.entries))
}

func (b *Buffer) lock(node uint64) *sync.Mutex {
	return &b.locks[(node>>bufferLockShift)%bufferLocks]
}

// Add appends targets and, per property column, the matching values to
// node. Within one call the order of targets is kept.
func (b *Buffer) Add(node uint64, targets []uint64, properties [][]uint64) error {
	if node >= b.NodeCount() {
		return &ErrNodeOutOfRange{Node: node, NodeCount: b.NodeCount()}
	}
	if len(properties) != b.columns {
		return &ErrPropertyCountMismatch{Node: node, Expected: b.columns, Actual: len(properties)}
	}
	for _, col := range properties {
		if len(col) != len(targets) {
			return &ErrPropertyCountMismatch{Node: node, Expected: len(targets), Actual: len(col)}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	mu := b.lock(node)
	mu.Lock()
	defer mu.Unlock()

	e := b.entries[node]
	if e == nil {
		e = &Entry{Properties: make([][]uint64, b.columns)}
		b.entries[node] = e
	}
	e.Targets = varint.Append(e.Targets, targets)
	e.Count += len(targets)
	for i, col := range properties {
		e.Properties[i] = append(e.Properties[i], col...)
	}
	return nil
}

// Count returns the number of buffered relationships of node.
func (b *Buffer) Count(node uint64) int {
	mu := b.lock(node)
	mu.Lock()
	defer mu.Unlock()

	if e := b.entries[node]; e != nil {
		return e.Count
	}
	return 0
}

// Take removes and returns the entry of node, or nil if it has none.
func (b *Buffer) Take(node uint64) *Entry {
	mu := b.lock(node)
	mu.Lock()
	defer mu.Unlock()

	e := b.entries[node]
	b.entries[node] = nil
	return e
}
