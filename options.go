package csrgo

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/csrgo/adjacency"
	"github.com/hupe1980/csrgo/internal/arena"
	"github.com/hupe1980/csrgo/internal/batch"
	"github.com/hupe1980/csrgo/model"
)

// DefaultBatchSize is the number of relationships a local loader buffers
// before it hands them to the adjacency buffer.
const DefaultBatchSize = 10_000

// ProgressFunc receives build progress. It must not block and must not call
// back into the loader.
type ProgressFunc func(stage string, done, total uint64)

type options struct {
	concurrency      int
	orientation      model.Orientation
	compression      model.Compression
	aggregation      model.Aggregation
	properties       []adjacency.PropertyColumn
	relationshipType int32
	batchSize        int
	pageSize         int
	strictNodes      bool
	checkedNodeIDs   bool
	highestNodeID    *uint64
	sortedNodeIDs    bool
	memoryLimit      int64
	logger           *Logger
	metricsCollector MetricsCollector
	progress         ProgressFunc
}

// Option configures a GraphLoader.
type Option func(*options)

func defaultOptions() options {
	return options{
		concurrency:      runtime.GOMAXPROCS(0),
		orientation:      model.OrientationNatural,
		compression:      model.CompressionDelta,
		relationshipType: batch.AnyType,
		batchSize:        DefaultBatchSize,
		pageSize:         arena.DefaultPageSize,
		checkedNodeIDs:   true,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

func applyOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return o, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return o, nil
}

func (o *options) validate() error {
	if o.concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", o.concurrency)
	}
	if o.batchSize < 2 {
		return fmt.Errorf("batch size must be at least 2, got %d", o.batchSize)
	}
	if o.pageSize < arena.MinPageSize {
		return fmt.Errorf("page size must be at least %d, got %d", arena.MinPageSize, o.pageSize)
	}
	if o.memoryLimit < 0 {
		return fmt.Errorf("memory limit must not be negative, got %d", o.memoryLimit)
	}
	if o.orientation > model.OrientationUndirected {
		return fmt.Errorf("invalid orientation %v", o.orientation)
	}

	seen := make(map[string]struct{}, len(o.properties))
	for _, p := range o.properties {
		if p.Name == "" {
			return fmt.Errorf("property name must not be empty")
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("duplicate property %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	cfg := adjacency.Config{
		Compression: o.compression,
		Aggregation: o.aggregation,
		Properties:  o.properties,
	}
	return cfg.Validate()
}

// WithConcurrency sets the number of build workers.
// Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithOrientation sets how loaded relationships are stored.
// Defaults to model.OrientationNatural.
func WithOrientation(orientation model.Orientation) Option {
	return func(o *options) {
		o.orientation = orientation
	}
}

// WithCompression selects the adjacency strategy.
// Defaults to model.CompressionDelta.
func WithCompression(compression model.Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithAggregation sets the aggregation of parallel relationships. It also
// applies to properties added without an explicit aggregation.
func WithAggregation(aggregation model.Aggregation) Option {
	return func(o *options) {
		o.aggregation = aggregation
	}
}

// WithProperty adds a relationship property column. Relationships loaded
// without a value for it get defaultValue.
func WithProperty(name string, aggregation model.Aggregation, defaultValue float64) Option {
	return func(o *options) {
		o.properties = append(o.properties, adjacency.PropertyColumn{
			Name:         name,
			Aggregation:  aggregation,
			DefaultValue: defaultValue,
		})
	}
}

// WithRelationshipType keeps only relationships of the given type.
// Defaults to all types.
func WithRelationshipType(relType int32) Option {
	return func(o *options) {
		o.relationshipType = relType
	}
}

// WithBatchSize sets the number of relationships per loader batch.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithPageSize sets the page size in bytes of the adjacency pages.
func WithPageSize(bytes int) Option {
	return func(o *options) {
		o.pageSize = bytes
	}
}

// WithStrictNodes makes relationships with unknown endpoints fail the load
// instead of being dropped.
func WithStrictNodes(strict bool) Option {
	return func(o *options) {
		o.strictNodes = strict
	}
}

// WithCheckedNodeIDs rejects node ids added more than once. Enabled by default.
func WithCheckedNodeIDs(checked bool) Option {
	return func(o *options) {
		o.checkedNodeIDs = checked
	}
}

// WithHighestNodeID bounds the external node id space. Without it the bound
// is derived from the added nodes.
func WithHighestNodeID(id uint64) Option {
	return func(o *options) {
		o.highestNodeID = &id
	}
}

// WithSortedNodeIDs assigns internal ids in ascending external id order
// instead of insertion order.
func WithSortedNodeIDs(sorted bool) Option {
	return func(o *options) {
		o.sortedNodeIDs = sorted
	}
}

// WithMemoryLimit bounds the page memory of all builds of a loader.
// Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithLogger sets the logger.
//
// If nil is passed, the no-op logger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr with the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}
