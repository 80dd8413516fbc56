package idmap

import (
	"context"

	"github.com/hupe1980/csrgo/model"
)

// IDMap is the read interface of a built id map. Implementations are
// immutable and safe for concurrent use.
type IDMap interface {
	// NodeCount returns the number of nodes.
	NodeCount() uint64
	// HighestExternalID returns the upper bound of the external id space.
	HighestExternalID() uint64
	// ToInternal returns the dense id of an external id, or model.NotFound.
	ToInternal(externalID uint64) uint64
	// ToExternal returns the external id of a dense id.
	ToExternal(nodeID uint64) uint64
	// Contains reports whether the external id is mapped.
	Contains(externalID uint64) bool
	// NodeLabels returns the labels of a node.
	NodeLabels(nodeID uint64) []model.NodeLabel
	// HasLabel reports whether the node carries the label.
	HasLabel(nodeID uint64, label model.NodeLabel) bool
	// AvailableLabels returns all labels in ascending order.
	AvailableLabels() []model.NodeLabel
	// ForEachNode calls fn for every dense id in ascending order until fn returns false.
	ForEachNode(fn func(nodeID uint64) bool)
	// RootIDMap returns the unfiltered map this map derives from.
	RootIDMap() IDMap
	// ToRootNodeID translates a dense id of this map into the root map.
	ToRootNodeID(nodeID uint64) uint64
	// ToFilteredNodeID translates a root dense id into this map, or model.NotFound.
	ToFilteredNodeID(rootNodeID uint64) uint64
	// WithFilteredLabels derives a map over the nodes carrying any of labels.
	WithFilteredLabels(ctx context.Context, concurrency int, labels ...model.NodeLabel) (*FilteredIDMap, error)
}

var (
	_ IDMap = (*ArrayIDMap)(nil)
	_ IDMap = (*FilteredIDMap)(nil)
)
