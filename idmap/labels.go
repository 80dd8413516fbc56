package idmap

import (
	"context"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/csrgo/internal/bitset"
	"github.com/hupe1980/csrgo/internal/container"
	"github.com/hupe1980/csrgo/internal/partition"
	"github.com/hupe1980/csrgo/internal/resource"
	"github.com/hupe1980/csrgo/model"
)

// labelBuilder records label membership by external id while nodes are
// inserted concurrently.
type labelBuilder struct {
	mu   sync.RWMutex
	bits map[model.NodeLabel]*bitset.BitSet
}

func newLabelBuilder() *labelBuilder {
	return &labelBuilder{bits: make(map[model.NodeLabel]*bitset.BitSet)}
}

func (l *labelBuilder) bitsFor(label model.NodeLabel) *bitset.BitSet {
	l.mu.RLock()
	bs, ok := l.bits[label]
	l.mu.RUnlock()
	if ok {
		return bs
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if bs, ok = l.bits[label]; !ok {
		bs = bitset.New()
		l.bits[label] = bs
	}
	return bs
}

func (l *labelBuilder) add(externalID uint64, labels []model.NodeLabel) {
	for _, label := range labels {
		if label == model.AllNodes {
			continue
		}
		l.bitsFor(label).Set(externalID)
	}
}

// transpose converts the external id bitsets into bitmaps over internal ids.
func (l *labelBuilder) transpose(ctx context.Context, rc *resource.Controller, internalOf *container.SparseArray, concurrency int) (*labelInformation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	labels := make([]model.NodeLabel, 0, len(l.bits))
	for label := range l.bits {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	bitmaps := make([]*roaring64.Bitmap, len(labels))
	chunks := partition.NewChunks(uint64(len(labels)), 1)

	err := partition.Run(ctx, rc, min(concurrency, max(len(labels), 1)), func(ctx context.Context, _ int) error {
		for r, ok := chunks.Next(); ok; r, ok = chunks.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			bm := roaring64.New()
			l.bits[labels[r.Start]].ForEach(func(externalID uint64) bool {
				if id := internalOf.Get(externalID); id != model.NotFound {
					bm.Add(id)
				}
				return true
			})
			bm.RunOptimize()
			bitmaps[r.Start] = bm
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	info := &labelInformation{
		labels:  labels,
		bitmaps: make(map[model.NodeLabel]*roaring64.Bitmap, len(labels)),
	}
	for i, label := range labels {
		info.bitmaps[label] = bitmaps[i]
	}
	return info, nil
}

// labelInformation is the frozen label index of a built map.
type labelInformation struct {
	labels  []model.NodeLabel
	bitmaps map[model.NodeLabel]*roaring64.Bitmap
}

func (li *labelInformation) isEmpty() bool {
	return len(li.labels) == 0
}

func (li *labelInformation) hasLabel(nodeID uint64, label model.NodeLabel) bool {
	if label == model.AllNodes {
		return true
	}
	bm, ok := li.bitmaps[label]
	return ok && bm.Contains(nodeID)
}

func (li *labelInformation) nodeLabels(nodeID uint64) []model.NodeLabel {
	if li.isEmpty() {
		return []model.NodeLabel{model.AllNodes}
	}
	var out []model.NodeLabel
	for _, label := range li.labels {
		if li.bitmaps[label].Contains(nodeID) {
			out = append(out, label)
		}
	}
	return out
}

func (li *labelInformation) availableLabels() []model.NodeLabel {
	if li.isEmpty() {
		return []model.NodeLabel{model.AllNodes}
	}
	return slices.Clone(li.labels)
}

// union returns the internal ids carrying any of labels.
func (li *labelInformation) union(labels []model.NodeLabel, nodeCount uint64) (*roaring64.Bitmap, error) {
	out := roaring64.New()
	for _, label := range labels {
		if label == model.AllNodes {
			out.AddRange(0, nodeCount)
			continue
		}
		bm, ok := li.bitmaps[label]
		if !ok {
			return nil, &ErrUnknownLabel{Label: label}
		}
		out.Or(bm)
	}
	return out, nil
}

// labelCount returns the number of nodes carrying label.
func (li *labelInformation) labelCount(label model.NodeLabel, nodeCount uint64) uint64 {
	if label == model.AllNodes {
		return nodeCount
	}
	if bm, ok := li.bitmaps[label]; ok {
		return bm.GetCardinality()
	}
	return 0
}
