package adjacency

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/partition"
	"github.com/hupe1980/csrgo/internal/progress"
	"github.com/hupe1980/csrgo/model"
)

// compressChunkSize is the number of nodes a worker claims at once. The
// context is checked once per chunk.
const compressChunkSize = 256

// Factory creates the compressors of one graph and assembles the final
// adjacency and property lists.
type Factory struct {
	cfg   Config
	aggs  []model.Aggregation
	merge bool

	targetBytes *arena.PageList[byte]
	targetWords *arena.PageList[uint64]
	propPages   []*arena.PageList[uint64]

	// written by compressors; every node is compressed by exactly one worker
	degrees     []uint32
	offsets     []uint64
	propOffsets [][]uint64

	relationships atomic.Uint64
	open          atomic.Int64
	built         atomic.Bool
}

// NewFactory validates cfg and creates a Factory.
func NewFactory(cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Factory{
		cfg:         cfg,
		aggs:        cfg.aggregations(),
		merge:       cfg.merges(),
		degrees:     make([]uint32, cfg.NodeCount),
		offsets:     make([]uint64, cfg.NodeCount),
		propOffsets: make([][]uint64, len(cfg.Properties)),
		propPages:   make([]*arena.PageList[uint64], len(cfg.Properties)),
	}

	opts := cfg.arenaOptions()
	wordPageSize := cfg.pageSize() / 8

	switch cfg.Compression {
	case model.CompressionRaw:
		f.targetWords = arena.NewPageList[uint64](wordPageSize, opts...)
	default:
		f.targetBytes = arena.NewPageList[byte](cfg.pageSize(), opts...)
	}

	for i := range cfg.Properties {
		f.propPages[i] = arena.NewPageList[uint64](wordPageSize, opts...)
		f.propOffsets[i] = make([]uint64, cfg.NodeCount)
	}
	return f, nil
}

// Config returns the factory configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// CreateCompressor returns a new compressor of the configured strategy.
func (f *Factory) CreateCompressor() Compressor {
	f.open.Add(1)
	base := newCompressorBase(f)

	if f.cfg.Compression == model.CompressionRaw {
		return &rawCompressor{compressorBase: base, targets: f.targetWords.NewAllocator()}
	}
	return &deltaCompressor{compressorBase: base, targets: f.targetBytes.NewAllocator()}
}

// RelationshipCount returns the number of relationships compressed so far.
func (f *Factory) RelationshipCount() uint64 {
	return f.relationships.Load()
}

// CompressConfig configures Factory.CompressAll.
type CompressConfig struct {
	// Mapper maps targets while they are decoded; nil means identity.
	Mapper ValueMapper
	// Concurrency is the number of workers. If <= 0, GOMAXPROCS is used.
	Concurrency int
	// Progress receives "compress" stage updates; may be nil.
	Progress progress.Func
}

// CompressAll compresses every node in [0, NodeCount) in parallel. source
// returns the entry of a node, or nil for a node without relationships; it
// is called exactly once per node.
func (f *Factory) CompressAll(ctx context.Context, source func(node uint64) *Entry, cfg CompressConfig) error {
	if f.built.Load() {
		return ErrAlreadyBuilt
	}

	workers := cfg.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	nodeCount := f.cfg.NodeCount
	chunks := partition.NewChunks(nodeCount, compressChunkSize)
	report := progress.New(cfg.Progress, "compress", nodeCount, 0)

	err := partition.Run(ctx, f.cfg.Resources, workers, func(ctx context.Context, _ int) error {
		c := f.CreateCompressor()
		defer c.Close()

		for r, ok := chunks.Next(); ok; r, ok = chunks.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			for node := r.Start; node < r.End; node++ {
				if _, err := c.Compress(node, source(node), cfg.Mapper); err != nil {
					return err
				}
			}
			report.Add(r.Len())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("compress adjacency: %w", err)
	}

	report.Done()
	return nil
}

// Build finalizes the page lists and returns the adjacency list and one
// property list per configured column. Every compressor must be closed.
func (f *Factory) Build() (AdjacencyList, []*PropertyList, error) {
	if n := f.open.Load(); n > 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrOpenCompressors, n)
	}
	if !f.built.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyBuilt
	}

	var (
		adj AdjacencyList
		err error
	)

	if f.cfg.Compression == model.CompressionRaw {
		var pages *arena.Pages[uint64]
		if pages, err = f.targetWords.IntoPages(); err == nil {
			adj = &RawList{degrees: f.degrees, offsets: f.offsets, pages: pages}
		}
	} else {
		var pages *arena.Pages[byte]
		if pages, err = f.targetBytes.IntoPages(); err == nil {
			adj = &CompressedList{degrees: f.degrees, offsets: f.offsets, pages: pages}
		}
	}
	if err != nil {
		return nil, nil, err
	}

	props := make([]*PropertyList, len(f.propPages))
	for i, pl := range f.propPages {
		pages, perr := pl.IntoPages()
		if perr != nil {
			err = errors.Join(err, perr)
			continue
		}
		col := f.cfg.Properties[i]
		props[i] = &PropertyList{
			name:         col.Name,
			aggregation:  f.aggs[i],
			defaultValue: col.DefaultValue,
			degrees:      f.degrees,
			offsets:      f.propOffsets[i],
			pages:        pages,
		}
	}
	if err != nil {
		adj.Release()
		for _, p := range props {
			if p != nil {
				p.Release()
			}
		}
		return nil, nil, err
	}

	return adj, props, nil
}

// Stats returns the page statistics of the target pages and of every
// property column, in column order.
func (f *Factory) Stats() (targets arena.Stats, properties []arena.Stats) {
	if f.targetWords != nil {
		targets = f.targetWords.Stats()
	} else {
		targets = f.targetBytes.Stats()
	}
	for _, pl := range f.propPages {
		properties = append(properties, pl.Stats())
	}
	return targets, properties
}

// Discard drops the pages of a factory that will not be built and returns
// their memory to the resource controller. Every compressor must be closed.
func (f *Factory) Discard() {
	if !f.built.CompareAndSwap(false, true) {
		return
	}
	if f.targetWords != nil {
		releasePages(f.targetWords)
	} else {
		releasePages(f.targetBytes)
	}
	for _, pl := range f.propPages {
		releasePages(pl)
	}
}

func releasePages[T arena.Element](pl *arena.PageList[T]) {
	if pages, err := pl.IntoPages(); err == nil {
		pages.Release()
	}
}
