package csrgo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/csrgo/adjacency"
	"github.com/hupe1980/csrgo/idmap"
	"github.com/hupe1980/csrgo/internal/batch"
	"github.com/hupe1980/csrgo/internal/progress"
	"github.com/hupe1980/csrgo/internal/radix"
	"github.com/hupe1980/csrgo/internal/resource"
	"github.com/hupe1980/csrgo/model"
)

type loaderState int32

const (
	stateNodes loaderState = iota
	stateRelationships
	stateBuilt
)

// GraphLoader builds a Graph in two phases. Nodes are added first and
// turned into an id map by BuildNodes; relationships are then added through
// AddRelationship or per-goroutine LocalLoaders and compressed by Build.
//
// AddNode, AddNodes, AddRelationship and NewLocalLoader are safe for
// concurrent use within their phase.
type GraphLoader struct {
	opts options
	rc   *resource.Controller

	mu    sync.Mutex
	state atomic.Int32

	nodes  *idmap.Builder
	idMap  *idmap.ArrayIDMap
	buffer *adjacency.Buffer

	// shared backs the mutex-guarded AddRelationship path
	shared *LocalLoader

	openLoaders atomic.Int64
	loaded      atomic.Uint64
	dropped     atomic.Uint64
	filtered    atomic.Uint64
}

// NewGraphLoader creates a loader with the given options.
func NewGraphLoader(opts ...Option) (*GraphLoader, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return &GraphLoader{
		opts: o,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes: o.memoryLimit,
			MaxWorkers:       int64(o.concurrency),
		}),
		nodes: idmap.NewBuilder(),
	}, nil
}

// MemoryUsage returns the page memory currently held by graphs of this loader.
func (l *GraphLoader) MemoryUsage() int64 {
	return l.rc.MemoryUsage()
}

// AddNode adds a node with optional labels.
func (l *GraphLoader) AddNode(externalID uint64, labels ...model.NodeLabel) error {
	if loaderState(l.state.Load()) != stateNodes {
		return fmt.Errorf("%w: nodes already built", ErrInvalidState)
	}
	return translateError(l.nodes.AddNode(externalID, labels...))
}

// AddNodes adds a batch of nodes sharing the same labels.
func (l *GraphLoader) AddNodes(externalIDs []uint64, labels ...model.NodeLabel) error {
	if loaderState(l.state.Load()) != stateNodes {
		return fmt.Errorf("%w: nodes already built", ErrInvalidState)
	}
	return translateError(l.nodes.AddNodes(externalIDs, labels...))
}

// BuildNodes finishes the node phase and returns the id map. Calling it
// again returns the same map.
func (l *GraphLoader) BuildNodes(ctx context.Context) (*idmap.ArrayIDMap, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idMap != nil {
		return l.idMap, nil
	}
	if loaderState(l.state.Load()) != stateNodes {
		return nil, fmt.Errorf("%w: node build failed before", ErrInvalidState)
	}
	l.state.Store(int32(stateRelationships))

	start := time.Now()
	m, err := l.nodes.Build(ctx, idmap.BuildConfig{
		HighestExternalID: l.opts.highestNodeID,
		Concurrency:       l.opts.concurrency,
		Checked:           l.opts.checkedNodeIDs,
		Sorted:            l.opts.sortedNodeIDs,
		Resources:         l.rc,
		Progress:          progress.Func(l.opts.progress),
	})
	l.nodes = nil
	duration := time.Since(start)

	if err != nil {
		l.state.Store(int32(stateBuilt))
		err = translateError(err)
		l.opts.metricsCollector.RecordNodes(0, duration, err)
		l.opts.logger.LogBuildFailed(ctx, "nodes", err)
		return nil, err
	}

	l.idMap = m
	l.buffer = adjacency.NewBuffer(m.NodeCount(), len(l.opts.properties))

	l.opts.metricsCollector.RecordNodes(m.NodeCount(), duration, nil)
	l.opts.logger.LogNodesBuilt(ctx, m.NodeCount(), len(m.AvailableLabels()), m.SizeInBytes(), duration)
	return m, nil
}

// NewLocalLoader returns a relationship loader owned by one goroutine. It
// must be closed before Build. Once Build has started, NewLocalLoader
// returns ErrInvalidState.
func (l *GraphLoader) NewLocalLoader() (*LocalLoader, error) {
	// Build checks the open loaders and leaves the relationship phase under
	// the same lock.
	l.mu.Lock()
	defer l.mu.Unlock()

	if loaderState(l.state.Load()) != stateRelationships || l.buffer == nil {
		return nil, fmt.Errorf("%w: nodes must be built before relationships", ErrInvalidState)
	}
	ll, err := newLocalLoader(l)
	if err != nil {
		return nil, err
	}
	l.openLoaders.Add(1)
	return ll, nil
}

// AddRelationship adds a relationship between two external node ids
// through a shared, mutex-guarded loader.
func (l *GraphLoader) AddRelationship(source, target uint64, properties ...float64) error {
	return l.AddTypedRelationship(batch.AnyType, source, target, properties...)
}

// AddTypedRelationship is AddRelationship for a relationship of relType.
func (l *GraphLoader) AddTypedRelationship(relType int32, source, target uint64, properties ...float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if loaderState(l.state.Load()) != stateRelationships || l.buffer == nil {
		return fmt.Errorf("%w: nodes must be built before relationships", ErrInvalidState)
	}
	if l.shared == nil {
		ll, err := newLocalLoader(l)
		if err != nil {
			return err
		}
		l.shared = ll
	}
	return l.shared.AddTypedRelationship(relType, source, target, properties...)
}

// Build compresses all loaded relationships and returns the graph. Every
// LocalLoader must be closed. On error nothing is published and the loader
// cannot be used anymore.
func (l *GraphLoader) Build(ctx context.Context) (*Graph, error) {
	if _, err := l.BuildNodes(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if loaderState(l.state.Load()) != stateRelationships {
		return nil, fmt.Errorf("%w: graph already built", ErrInvalidState)
	}
	if n := l.openLoaders.Load(); n > 0 {
		return nil, &ErrOpenLoaders{Open: n}
	}
	l.state.Store(int32(stateBuilt))

	start := time.Now()
	g, err := l.buildRelationships(ctx)
	duration := time.Since(start)

	if err != nil {
		err = translateError(err)
		l.opts.metricsCollector.RecordRelationships(0, duration, err)
		l.opts.logger.LogBuildFailed(ctx, "relationships", err)
		return nil, err
	}

	l.opts.metricsCollector.RecordRelationships(g.RelationshipCount(), duration, nil)
	l.opts.metricsCollector.RecordCompression(l.loaded.Load(), g.adjacency.SizeInBytes())
	l.opts.logger.LogDropped(ctx, l.dropped.Load(), l.filtered.Load())
	l.opts.logger.LogRelationshipsBuilt(ctx, g.RelationshipCount(), g.SizeInBytes(), duration)
	return g, nil
}

func (l *GraphLoader) buildRelationships(ctx context.Context) (*Graph, error) {
	if l.shared != nil {
		if err := l.shared.Close(); err != nil {
			return nil, err
		}
	}

	factory, err := adjacency.NewFactory(l.adjacencyConfig(l.idMap.NodeCount(), l.opts.properties))
	if err != nil {
		return nil, err
	}

	err = factory.CompressAll(ctx, l.buffer.Take, adjacency.CompressConfig{
		Concurrency: l.opts.concurrency,
		Progress:    progress.Func(l.opts.progress),
	})
	l.buffer = nil
	if err != nil {
		factory.Discard()
		return nil, err
	}

	adj, props, err := factory.Build()
	if err != nil {
		return nil, err
	}

	return &Graph{
		idMap:         l.idMap,
		adjacency:     adj,
		properties:    props,
		columns:       l.opts.properties,
		relationships: factory.RelationshipCount(),
		opts:          l.opts,
		rc:            l.rc,
	}, nil
}

func (l *GraphLoader) adjacencyConfig(nodeCount uint64, columns []adjacency.PropertyColumn) adjacency.Config {
	return adjacency.Config{
		NodeCount:   nodeCount,
		Compression: l.opts.compression,
		Aggregation: l.opts.aggregation,
		Properties:  columns,
		PageSize:    l.opts.pageSize,
		Resources:   l.rc,
	}
}

// LocalLoader buffers relationships of one goroutine and hands them to the
// graph's adjacency buffer in sorted batches.
type LocalLoader struct {
	parent  *GraphLoader
	idMap   *idmap.ArrayIDMap
	columns []adjacency.PropertyColumn

	batch *batch.Buffer
	// property values of the current batch, indexed by PropRef
	values   []uint64
	next     int
	sequence uint64

	// flush scratch
	targets []uint64
	props   [][]uint64

	closed bool
}

func newLocalLoader(l *GraphLoader) (*LocalLoader, error) {
	buf, err := batch.New(batch.Config{
		Capacity:       l.opts.batchSize,
		NodeCount:      l.idMap.NodeCount(),
		Type:           l.opts.relationshipType,
		FailOnUnmapped: l.opts.strictNodes,
	})
	if err != nil {
		return nil, err
	}

	columns := len(l.opts.properties)
	return &LocalLoader{
		parent:  l,
		idMap:   l.idMap,
		columns: l.opts.properties,
		batch:   buf,
		values:  make([]uint64, l.opts.batchSize*columns),
		props:   make([][]uint64, columns),
	}, nil
}

// AddRelationship adds a relationship between two external node ids.
// Missing trailing property values are filled with the column defaults.
func (ll *LocalLoader) AddRelationship(source, target uint64, properties ...float64) error {
	return ll.AddTypedRelationship(batch.AnyType, source, target, properties...)
}

// AddTypedRelationship is AddRelationship for a relationship of relType.
// Relationships not matching the loader's type filter are skipped.
func (ll *LocalLoader) AddTypedRelationship(relType int32, source, target uint64, properties ...float64) error {
	if ll.closed {
		return ErrLoaderClosed
	}
	if len(properties) > len(ll.columns) {
		return translateError(&adjacency.ErrPropertyCountMismatch{
			Node:     source,
			Expected: len(ll.columns),
			Actual:   len(properties),
		})
	}

	s, t := ll.idMap.ToInternal(source), ll.idMap.ToInternal(target)

	var pairs [2][2]uint64
	n := 1
	switch ll.parent.opts.orientation {
	case model.OrientationReverse:
		pairs[0] = [2]uint64{t, s}
	case model.OrientationUndirected:
		pairs[0] = [2]uint64{s, t}
		pairs[1] = [2]uint64{t, s}
		n = 2
	default:
		pairs[0] = [2]uint64{s, t}
	}

	// both directions of an undirected relationship share one value slot
	if ll.batch.Len()+n > ll.batch.Cap() || ll.next == ll.batch.Cap() {
		if err := ll.flush(); err != nil {
			return err
		}
	}

	slot := ll.next
	for i, col := range ll.columns {
		v := col.DefaultValue
		if i < len(properties) {
			v = properties[i]
		}
		ll.values[slot*len(ll.columns)+i] = math.Float64bits(v)
	}

	stored := false
	for _, p := range pairs[:n] {
		ok, err := ll.batch.Offer(batch.Edge{
			Source:  p[0],
			Target:  p[1],
			Type:    relType,
			RelRef:  ll.sequence,
			PropRef: uint64(slot), //nolint:gosec // slot < batch capacity
		})
		if err != nil {
			return translateError(fmt.Errorf("relationship (%d)->(%d): %w", source, target, err))
		}
		stored = stored || ok
	}
	if stored {
		ll.next++
		ll.parent.loaded.Add(1)
	}
	ll.sequence++
	return nil
}

// flush sorts the batch by source and appends every run to the graph's
// adjacency buffer.
func (ll *LocalLoader) flush() error {
	b := ll.batch
	if b.IsEmpty() {
		ll.next = 0
		return nil
	}

	b.SortBySource()
	columns := len(ll.columns)

	err := b.Runs(radix.BySource, func(node uint64, start, end int) error {
		ll.targets = ll.targets[:0]
		for c := range ll.props {
			ll.props[c] = ll.props[c][:0]
		}
		for i := start; i < end; i++ {
			ll.targets = append(ll.targets, b.Target(i))
			ref := int(b.PropRef(i)) //nolint:gosec // bounded by batch capacity
			for c := range ll.props {
				ll.props[c] = append(ll.props[c], ll.values[ref*columns+c])
			}
		}
		return ll.parent.buffer.Add(node, ll.targets, ll.props)
	})

	b.Reset()
	ll.next = 0
	return err
}

func (ll *LocalLoader) reportSkipped() {
	ll.parent.dropped.Add(ll.batch.Dropped())
	ll.parent.filtered.Add(ll.batch.Filtered())
}

// Close flushes the remaining relationships. It is idempotent.
func (ll *LocalLoader) Close() error {
	if ll.closed {
		return nil
	}
	ll.closed = true
	err := ll.flush()
	ll.reportSkipped()
	if ll != ll.parent.shared {
		ll.parent.openLoaders.Add(-1)
	}
	return translateError(err)
}
