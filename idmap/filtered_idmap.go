package idmap

import (
	"context"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/csrgo/model"
)

// FilteredIDMap is a map over a label-selected subset of a root map. Its
// dense ids are contiguous in [0, NodeCount) and ordered like the root ids
// they stand for.
//
// The filtered map shares the root; it never copies or mutates it.
type FilteredIDMap struct {
	root     *ArrayIDMap
	inner    *ArrayIDMap // root dense id <-> filtered dense id
	selected []model.NodeLabel
	members  *roaring64.Bitmap // root dense ids
}

// newFilteredIDMap selects the root nodes carrying any of labels. A non-nil
// within restricts the selection to those root ids.
func newFilteredIDMap(ctx context.Context, root *ArrayIDMap, concurrency int, labels []model.NodeLabel, within *roaring64.Bitmap) (*FilteredIDMap, error) {
	selected := slices.Clone(labels)
	slices.Sort(selected)
	selected = slices.Compact(selected)

	union, err := root.labels.union(selected, root.NodeCount())
	if err != nil {
		return nil, err
	}
	if within != nil {
		union.And(within)
	}

	// roaring yields ascending root ids, so the inner original array is sorted
	rootIDs := union.ToArray()

	cfg := BuildConfig{Concurrency: concurrency, Checked: true}
	capacity := root.NodeCount()
	if len(rootIDs) == 0 {
		capacity = 0
	}
	internalOf, err := populate(ctx, cfg, rootIDs, capacity)
	if err != nil {
		return nil, err
	}

	var highest uint64
	if capacity > 0 {
		highest = capacity - 1
	}

	return &FilteredIDMap{
		root: root,
		inner: &ArrayIDMap{
			original:   rootIDs,
			internalOf: internalOf,
			highest:    highest,
			labels:     &labelInformation{},
		},
		selected: selected,
		members:  union,
	}, nil
}

// NodeCount returns the number of nodes in the filtered map.
func (m *FilteredIDMap) NodeCount() uint64 {
	return m.inner.NodeCount()
}

// HighestExternalID returns the root map's external id bound.
func (m *FilteredIDMap) HighestExternalID() uint64 {
	return m.root.HighestExternalID()
}

// ToInternal returns the filtered dense id of externalID, or model.NotFound.
func (m *FilteredIDMap) ToInternal(externalID uint64) uint64 {
	rootID := m.root.ToInternal(externalID)
	if rootID == model.NotFound {
		return model.NotFound
	}
	return m.inner.ToInternal(rootID)
}

// ToExternal returns the external id of a filtered dense id.
func (m *FilteredIDMap) ToExternal(nodeID uint64) uint64 {
	return m.root.ToExternal(m.inner.ToExternal(nodeID))
}

// Contains reports whether externalID is part of the filtered map.
func (m *FilteredIDMap) Contains(externalID uint64) bool {
	return m.ToInternal(externalID) != model.NotFound
}

// NodeLabels returns the selected labels carried by nodeID.
func (m *FilteredIDMap) NodeLabels(nodeID uint64) []model.NodeLabel {
	rootID := m.inner.ToExternal(nodeID)
	var out []model.NodeLabel
	for _, label := range m.root.NodeLabels(rootID) {
		if m.isSelected(label) {
			out = append(out, label)
		}
	}
	return out
}

// HasLabel reports whether nodeID carries a selected label.
func (m *FilteredIDMap) HasLabel(nodeID uint64, label model.NodeLabel) bool {
	if nodeID >= m.NodeCount() || !m.isSelected(label) {
		return false
	}
	return m.root.HasLabel(m.inner.ToExternal(nodeID), label)
}

func (m *FilteredIDMap) isSelected(label model.NodeLabel) bool {
	if slices.Contains(m.selected, model.AllNodes) {
		return true
	}
	_, found := slices.BinarySearch(m.selected, label)
	return found
}

// AvailableLabels returns the selected labels.
func (m *FilteredIDMap) AvailableLabels() []model.NodeLabel {
	if slices.Contains(m.selected, model.AllNodes) {
		return m.root.AvailableLabels()
	}
	return slices.Clone(m.selected)
}

// ForEachNode calls fn for every filtered dense id until fn returns false.
func (m *FilteredIDMap) ForEachNode(fn func(nodeID uint64) bool) {
	m.inner.ForEachNode(fn)
}

// RootIDMap returns the root map.
func (m *FilteredIDMap) RootIDMap() IDMap {
	return m.root
}

// ToRootNodeID translates a filtered dense id into the root dense id space.
func (m *FilteredIDMap) ToRootNodeID(nodeID uint64) uint64 {
	return m.inner.ToExternal(nodeID)
}

// ToFilteredNodeID translates a root dense id into this map, or model.NotFound.
func (m *FilteredIDMap) ToFilteredNodeID(rootNodeID uint64) uint64 {
	return m.inner.ToInternal(rootNodeID)
}

// WithFilteredLabels derives a map over the nodes of m that carry any of
// labels. The new map refers to the root directly.
func (m *FilteredIDMap) WithFilteredLabels(ctx context.Context, concurrency int, labels ...model.NodeLabel) (*FilteredIDMap, error) {
	return newFilteredIDMap(ctx, m.root, concurrency, labels, m.members)
}
