package adjacency

import (
	"errors"
	"fmt"
)

var (
	// ErrMixedAggregation is returned when property columns mix NONE with a
	// merging aggregation.
	ErrMixedAggregation = errors.New("adjacency: property columns mix NONE with merging aggregations")
	// ErrInvalidAggregation is returned for an unknown aggregation value.
	ErrInvalidAggregation = errors.New("adjacency: invalid aggregation")
	// ErrAlreadyBuilt is returned when a Factory is used after Build.
	ErrAlreadyBuilt = errors.New("adjacency: factory already built")
	// ErrOpenCompressors is returned by Build while compressors are open.
	ErrOpenCompressors = errors.New("adjacency: compressors still open")
)

// ErrPropertyCountMismatch is returned when a node's property columns do not
// match the configured columns or the node's relationship count.
type ErrPropertyCountMismatch struct {
	Node     uint64
	Expected int
	Actual   int
}

func (e *ErrPropertyCountMismatch) Error() string {
	return fmt.Sprintf("adjacency: node %d: expected %d property values, got %d", e.Node, e.Expected, e.Actual)
}

// ErrNodeOutOfRange is returned for a node id outside [0, NodeCount).
type ErrNodeOutOfRange struct {
	Node      uint64
	NodeCount uint64
}

func (e *ErrNodeOutOfRange) Error() string {
	return fmt.Sprintf("adjacency: node %d out of range [0, %d)", e.Node, e.NodeCount)
}
