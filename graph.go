package csrgo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/csrgo/adjacency"
	"github.com/hupe1980/csrgo/idmap"
	"github.com/hupe1980/csrgo/internal/progress"
	"github.com/hupe1980/csrgo/internal/resource"
	"github.com/hupe1980/csrgo/internal/varint"
	"github.com/hupe1980/csrgo/model"
)

// Graph is an immutable graph in CSR form. It is safe for concurrent use.
// Node arguments are dense ids of the graph's id map.
type Graph struct {
	idMap         idmap.IDMap
	adjacency     adjacency.AdjacencyList
	properties    []*adjacency.PropertyList
	columns       []adjacency.PropertyColumn
	relationships uint64

	opts options
	rc   *resource.Controller
}

// IDMap returns the id map of the graph.
func (g *Graph) IDMap() idmap.IDMap { return g.idMap }

// Adjacency returns the adjacency list of the graph.
func (g *Graph) Adjacency() adjacency.AdjacencyList { return g.adjacency }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() uint64 { return g.idMap.NodeCount() }

// RelationshipCount returns the number of stored relationships. Undirected
// relationships count once per direction.
func (g *Graph) RelationshipCount() uint64 { return g.relationships }

// Degree returns the number of relationships of node.
func (g *Graph) Degree(node uint64) uint32 { return g.adjacency.Degree(node) }

// ToInternal returns the dense id of an external node id, or model.NotFound.
func (g *Graph) ToInternal(externalID uint64) uint64 { return g.idMap.ToInternal(externalID) }

// ToExternal returns the external id of a dense node id.
func (g *Graph) ToExternal(node uint64) uint64 { return g.idMap.ToExternal(node) }

// Cursor returns a cursor over the ascending targets of node.
func (g *Graph) Cursor(node uint64) adjacency.Cursor { return g.adjacency.Cursor(node) }

// ForEachRelationship calls fn for every relationship of node until fn
// returns false.
func (g *Graph) ForEachRelationship(node uint64, fn func(source, target uint64) bool) {
	g.adjacency.ForEachTarget(node, func(target uint64) bool {
		return fn(node, target)
	})
}

// HasRelationshipProperty reports whether the graph stores property columns.
func (g *Graph) HasRelationshipProperty() bool { return len(g.properties) > 0 }

// PropertyColumns returns the configured property columns.
func (g *Graph) PropertyColumns() []adjacency.PropertyColumn { return slices.Clone(g.columns) }

// Property returns the property list with the given name.
func (g *Graph) Property(name string) (*adjacency.PropertyList, error) {
	for i, col := range g.columns {
		if col.Name == name {
			return g.properties[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
}

// ForEachRelationshipWithProperty calls fn for every relationship of node
// with its value of the named property until fn returns false.
func (g *Graph) ForEachRelationshipWithProperty(node uint64, name string, fn func(source, target uint64, value float64) bool) error {
	prop, err := g.Property(name)
	if err != nil {
		return err
	}
	values := prop.Cursor(node)
	g.adjacency.ForEachTarget(node, func(target uint64) bool {
		return fn(node, target, values.Next())
	})
	return nil
}

// SizeInBytes returns the page memory held by the adjacency and property lists.
func (g *Graph) SizeInBytes() int64 {
	size := g.adjacency.SizeInBytes()
	for _, p := range g.properties {
		size += p.SizeInBytes()
	}
	return size
}

// Release returns the graph's page memory to the loader's memory budget.
// The graph stays readable. It is idempotent.
func (g *Graph) Release() {
	g.adjacency.Release()
	for _, p := range g.properties {
		p.Release()
	}
}

// Filter derives the subgraph induced by the nodes carrying any of labels.
// Relationships whose target is outside the subgraph are dropped. The
// filtered graph shares the root id map and has its own adjacency.
// Filtering a filtered graph only keeps nodes already part of it.
func (g *Graph) Filter(ctx context.Context, labels ...model.NodeLabel) (*Graph, error) {
	start := time.Now()

	fm, err := g.idMap.WithFilteredLabels(ctx, g.opts.concurrency, labels...)
	if err != nil {
		return nil, translateError(err)
	}

	// values are already aggregated, so the columns are copied as they are
	columns := make([]adjacency.PropertyColumn, len(g.columns))
	for i, col := range g.columns {
		columns[i] = adjacency.PropertyColumn{Name: col.Name, Aggregation: model.AggregationNone, DefaultValue: col.DefaultValue}
	}

	factory, err := adjacency.NewFactory(adjacency.Config{
		NodeCount:   fm.NodeCount(),
		Compression: g.opts.compression,
		Aggregation: model.AggregationNone,
		Properties:  columns,
		PageSize:    g.opts.pageSize,
		Resources:   g.rc,
	})
	if err != nil {
		return nil, translateError(err)
	}

	mapper := adjacency.MapperFunc(func(target uint64) uint64 {
		return fm.ToFilteredNodeID(g.idMap.ToRootNodeID(target))
	})

	source := func(node uint64) *adjacency.Entry {
		old := g.idMap.ToFilteredNodeID(fm.ToRootNodeID(node))
		if old == model.NotFound {
			return nil
		}
		return g.entry(old)
	}

	err = factory.CompressAll(ctx, source, adjacency.CompressConfig{
		Mapper:      mapper,
		Concurrency: g.opts.concurrency,
		Progress:    progress.Func(g.opts.progress),
	})
	if err != nil {
		factory.Discard()
		err = translateError(err)
		g.opts.logger.LogBuildFailed(ctx, "filter", err)
		return nil, err
	}

	adj, props, err := factory.Build()
	if err != nil {
		return nil, translateError(err)
	}

	filtered := &Graph{
		idMap:         fm,
		adjacency:     adj,
		properties:    props,
		columns:       g.columns,
		relationships: factory.RelationshipCount(),
		opts:          g.opts,
		rc:            g.rc,
	}

	g.opts.logger.WithStage("filter").LogRelationshipsBuilt(ctx, filtered.RelationshipCount(), filtered.SizeInBytes(), time.Since(start))
	return filtered, nil
}

// entry re-encodes the relationships of node as compressor input.
func (g *Graph) entry(node uint64) *adjacency.Entry {
	degree := int(g.adjacency.Degree(node))
	if degree == 0 {
		return nil
	}

	targets := make([]uint64, 0, degree)
	g.adjacency.ForEachTarget(node, func(target uint64) bool {
		targets = append(targets, target)
		return true
	})

	e := &adjacency.Entry{
		Targets:    varint.Append(make([]byte, 0, degree), targets),
		Count:      degree,
		Properties: make([][]uint64, len(g.properties)),
	}
	for i, p := range g.properties {
		e.Properties[i] = slices.Clone(p.Values(node))
	}
	return e
}
