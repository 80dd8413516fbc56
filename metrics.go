package csrgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting build metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    nodesCounter    prometheus.Counter
//	    buildHistogram  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordNodes(count uint64, duration time.Duration, err error) {
//	    p.nodesCounter.Add(float64(count))
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordNodes is called after each id map build.
	// count is the number of nodes, err is nil if successful.
	RecordNodes(count uint64, duration time.Duration, err error)

	// RecordRelationships is called after each adjacency build.
	// count is the number of stored relationships after aggregation.
	RecordRelationships(count uint64, duration time.Duration, err error)

	// RecordCompression is called after a successful adjacency build with
	// the number of loaded relationships and the bytes of the target pages.
	RecordCompression(loaded uint64, bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordNodes(uint64, time.Duration, error)         {}
func (NoopMetricsCollector) RecordRelationships(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordCompression(uint64, int64)                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	NodeBuilds              atomic.Int64
	NodeBuildErrors         atomic.Int64
	Nodes                   atomic.Int64
	NodeBuildNanos          atomic.Int64
	RelationshipBuilds      atomic.Int64
	RelationshipBuildErrors atomic.Int64
	Relationships           atomic.Int64
	RelationshipBuildNanos  atomic.Int64
	LoadedRelationships     atomic.Int64
	CompressedBytes         atomic.Int64
}

// RecordNodes implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNodes(count uint64, duration time.Duration, err error) {
	b.NodeBuilds.Add(1)
	b.NodeBuildNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.NodeBuildErrors.Add(1)
		return
	}
	b.Nodes.Add(int64(count)) //nolint:gosec
}

// RecordRelationships implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelationships(count uint64, duration time.Duration, err error) {
	b.RelationshipBuilds.Add(1)
	b.RelationshipBuildNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RelationshipBuildErrors.Add(1)
		return
	}
	b.Relationships.Add(int64(count)) //nolint:gosec
}

// RecordCompression implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompression(loaded uint64, bytes int64) {
	b.LoadedRelationships.Add(int64(loaded)) //nolint:gosec
	b.CompressedBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		NodeBuilds:              b.NodeBuilds.Load(),
		NodeBuildErrors:         b.NodeBuildErrors.Load(),
		Nodes:                   b.Nodes.Load(),
		NodeBuildAvgNanos:       avg(b.NodeBuildNanos.Load(), b.NodeBuilds.Load()),
		RelationshipBuilds:      b.RelationshipBuilds.Load(),
		RelationshipBuildErrors: b.RelationshipBuildErrors.Load(),
		Relationships:           b.Relationships.Load(),
		RelationshipAvgNanos:    avg(b.RelationshipBuildNanos.Load(), b.RelationshipBuilds.Load()),
		LoadedRelationships:     b.LoadedRelationships.Load(),
		CompressedBytes:         b.CompressedBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	NodeBuilds              int64
	NodeBuildErrors         int64
	Nodes                   int64
	NodeBuildAvgNanos       int64
	RelationshipBuilds      int64
	RelationshipBuildErrors int64
	Relationships           int64
	RelationshipAvgNanos    int64
	LoadedRelationships     int64
	CompressedBytes         int64
}
