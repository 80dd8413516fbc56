package idmap

import (
	"context"

	"github.com/hupe1980/csrgo/internal/container"
	"github.com/hupe1980/csrgo/model"
)

// ArrayIDMap is the root id map: a dense internal -> external array and a
// sparse external -> internal array.
type ArrayIDMap struct {
	original   []uint64
	internalOf *container.SparseArray
	highest    uint64
	labels     *labelInformation
}

// NodeCount returns the number of nodes.
func (m *ArrayIDMap) NodeCount() uint64 {
	return uint64(len(m.original))
}

// HighestExternalID returns the upper bound of the external id space.
func (m *ArrayIDMap) HighestExternalID() uint64 {
	return m.highest
}

// ToInternal returns the dense id of externalID, or model.NotFound.
func (m *ArrayIDMap) ToInternal(externalID uint64) uint64 {
	return m.internalOf.Get(externalID)
}

// ToExternal returns the external id of nodeID. nodeID must be < NodeCount.
func (m *ArrayIDMap) ToExternal(nodeID uint64) uint64 {
	return m.original[nodeID]
}

// Contains reports whether externalID is mapped.
func (m *ArrayIDMap) Contains(externalID uint64) bool {
	return m.internalOf.Contains(externalID)
}

// NodeLabels returns the labels of nodeID.
func (m *ArrayIDMap) NodeLabels(nodeID uint64) []model.NodeLabel {
	return m.labels.nodeLabels(nodeID)
}

// HasLabel reports whether nodeID carries label.
func (m *ArrayIDMap) HasLabel(nodeID uint64, label model.NodeLabel) bool {
	return nodeID < m.NodeCount() && m.labels.hasLabel(nodeID, label)
}

// AvailableLabels returns all labels in ascending order.
func (m *ArrayIDMap) AvailableLabels() []model.NodeLabel {
	return m.labels.availableLabels()
}

// SizeInBytes returns the memory held by the id arrays and label bitmaps.
func (m *ArrayIDMap) SizeInBytes() int64 {
	size := int64(len(m.original))*8 + m.internalOf.SizeInBytes()
	for _, bm := range m.labels.bitmaps {
		size += int64(bm.GetSizeInBytes()) //nolint:gosec // bitmap sizes fit int64
	}
	return size
}

// LabelCount returns the number of nodes carrying label.
func (m *ArrayIDMap) LabelCount(label model.NodeLabel) uint64 {
	return m.labels.labelCount(label, m.NodeCount())
}

// ForEachNode calls fn for every dense id in ascending order until fn returns false.
func (m *ArrayIDMap) ForEachNode(fn func(nodeID uint64) bool) {
	for id := range m.NodeCount() {
		if !fn(id) {
			return
		}
	}
}

// RootIDMap returns m.
func (m *ArrayIDMap) RootIDMap() IDMap {
	return m
}

// ToRootNodeID returns nodeID; the root map is its own root.
func (m *ArrayIDMap) ToRootNodeID(nodeID uint64) uint64 {
	return nodeID
}

// ToFilteredNodeID returns rootNodeID if it is valid, or model.NotFound.
func (m *ArrayIDMap) ToFilteredNodeID(rootNodeID uint64) uint64 {
	if rootNodeID >= m.NodeCount() {
		return model.NotFound
	}
	return rootNodeID
}

// WithFilteredLabels derives a map over the nodes carrying any of labels.
func (m *ArrayIDMap) WithFilteredLabels(ctx context.Context, concurrency int, labels ...model.NodeLabel) (*FilteredIDMap, error) {
	return newFilteredIDMap(ctx, m, concurrency, labels, nil)
}
