package idmap

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/csrgo/internal/container"
	"github.com/hupe1980/csrgo/internal/partition"
	"github.com/hupe1980/csrgo/internal/progress"
	"github.com/hupe1980/csrgo/internal/resource"
	"github.com/hupe1980/csrgo/model"
)

// BuildConfig configures Builder.Build.
type BuildConfig struct {
	// HighestExternalID bounds the external id space. If nil, it is derived
	// from the inserted ids.
	HighestExternalID *uint64

	// Concurrency is the number of workers. If <= 0, GOMAXPROCS is used.
	Concurrency int

	// Checked rejects external ids inserted more than once.
	Checked bool

	// Sorted assigns dense ids in ascending external id order instead of
	// insertion order.
	Sorted bool

	// Resources bounds worker slots; may be nil.
	Resources *resource.Controller

	// Progress receives "idmap" stage updates; may be nil.
	Progress progress.Func
}

func (c BuildConfig) concurrency() int {
	if c.Concurrency <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Concurrency
}

// Builder collects node insertions from concurrent producers.
//
// All insertions must happen before Build is called. A Builder builds once.
type Builder struct {
	original *container.SegmentedArray[uint64]
	count    atomic.Uint64
	highest  atomic.Uint64 // highest inserted id + 1, zero when empty
	labels   *labelBuilder
	built    atomic.Bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		original: container.NewSegmentedArray[uint64](),
		labels:   newLabelBuilder(),
	}
}

// AddNode records a node with optional labels. It is safe for concurrent use.
func (b *Builder) AddNode(externalID uint64, labels ...model.NodeLabel) error {
	if b.built.Load() {
		return ErrAlreadyBuilt
	}
	if externalID == model.NotFound {
		return ErrInvalidNodeID
	}

	index := b.count.Add(1) - 1
	b.original.Set(index, externalID)
	b.observe(externalID)
	b.labels.add(externalID, labels)
	return nil
}

// AddNodes records a batch of nodes that share the same labels. The batch
// occupies consecutive insertion positions.
func (b *Builder) AddNodes(externalIDs []uint64, labels ...model.NodeLabel) error {
	if b.built.Load() {
		return ErrAlreadyBuilt
	}
	if len(externalIDs) == 0 {
		return nil
	}
	if slices.Contains(externalIDs, model.NotFound) {
		return ErrInvalidNodeID
	}

	n := uint64(len(externalIDs))
	start := b.count.Add(n) - n
	b.original.Reserve(start + n)

	var batchMax uint64
	for i, id := range externalIDs {
		b.original.Set(start+uint64(i), id) //nolint:gosec // i >= 0
		batchMax = max(batchMax, id)
		b.labels.add(id, labels)
	}
	b.observe(batchMax)
	return nil
}

func (b *Builder) observe(externalID uint64) {
	for {
		cur := b.highest.Load()
		if externalID+1 <= cur || b.highest.CompareAndSwap(cur, externalID+1) {
			return
		}
	}
}

// NodeCount returns the number of insertions so far.
func (b *Builder) NodeCount() uint64 {
	return b.count.Load()
}

// Build produces the immutable map. On error no map is returned and the
// Builder cannot be reused.
func (b *Builder) Build(ctx context.Context, cfg BuildConfig) (*ArrayIDMap, error) {
	if !b.built.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBuilt
	}

	nodeCount := b.count.Load()
	highest, err := b.resolveHighest(cfg)
	if err != nil {
		return nil, err
	}

	original := make([]uint64, nodeCount)
	b.original.CopyTo(original)
	b.original = nil

	if cfg.Sorted {
		slices.Sort(original)
	}

	capacity := highest + 1
	if nodeCount == 0 {
		capacity = 0
	}

	internalOf, err := populate(ctx, cfg, original, capacity)
	if err != nil {
		return nil, err
	}

	labels, err := b.labels.transpose(ctx, cfg.Resources, internalOf, cfg.concurrency())
	if err != nil {
		return nil, err
	}
	b.labels = nil

	return &ArrayIDMap{
		original:   original,
		internalOf: internalOf,
		highest:    highest,
		labels:     labels,
	}, nil
}

func (b *Builder) resolveHighest(cfg BuildConfig) (uint64, error) {
	observed := b.highest.Load() // highest + 1
	if cfg.HighestExternalID == nil {
		if observed == 0 {
			return 0, nil
		}
		return observed - 1, nil
	}

	highest := *cfg.HighestExternalID
	if highest == model.NotFound {
		return 0, ErrInvalidNodeID
	}
	if observed > 0 && observed-1 > highest {
		return 0, &ErrNodeIDOutOfRange{NodeID: observed - 1, Highest: highest}
	}
	return highest, nil
}

// populate fills the sparse external -> internal array. Every worker owns a
// disjoint range of internal ids.
func populate(ctx context.Context, cfg BuildConfig, original []uint64, capacity uint64) (*container.SparseArray, error) {
	internalOf := container.NewSparseArray(capacity)
	nodeCount := uint64(len(original))

	report := progress.New(cfg.Progress, "idmap", nodeCount, time.Duration(0))

	err := partition.ForEachRange(ctx, cfg.Resources, nodeCount, cfg.concurrency(), func(ctx context.Context, r partition.Range) error {
		for start := r.Start; start < r.End; start += cancelCheckInterval {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+cancelCheckInterval, r.End)
			for id := start; id < end; id++ {
				externalID := original[id]
				if !cfg.Checked {
					if err := internalOf.Set(externalID, id); err != nil {
						return err
					}
					continue
				}
				ok, err := internalOf.SetIfAbsent(externalID, id)
				if err != nil {
					return err
				}
				if !ok {
					return &ErrDuplicateNodeID{NodeID: externalID}
				}
			}
			report.Add(end - start)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build id map: %w", err)
	}

	report.Done()
	return internalOf, nil
}

const cancelCheckInterval = 1 << 14
