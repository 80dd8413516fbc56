// Package csrgo loads graphs into a compact, immutable compressed sparse
// row (CSR) representation.
//
// Loading happens in two phases. Nodes with arbitrary 64-bit ids are added
// first and mapped to dense internal ids; relationships are then added by
// any number of goroutines and compressed per node.
//
// # Quick Start
//
//	ctx := context.Background()
//	loader, _ := csrgo.NewGraphLoader(
//	    csrgo.WithProperty("weight", model.AggregationSum, 1.0),
//	)
//	loader.AddNode(10)
//	loader.AddNode(20)
//	loader.BuildNodes(ctx)
//	loader.AddRelationship(10, 20, 2.5)
//	graph, _ := loader.Build(ctx)
//
// # Parallel Loading
//
// Each goroutine should own a LocalLoader; it buffers relationships and
// hands them over in sorted batches:
//
//	ll, _ := loader.NewLocalLoader()
//	defer ll.Close()
//	ll.AddRelationship(source, target, weight)
//
// AddRelationship on the GraphLoader is a convenience path guarded by a
// mutex.
//
// # Storage
//
// Targets are stored sorted, either as delta encoded varints
// (model.CompressionDelta, the default) or as plain 64-bit words
// (model.CompressionRaw). Parallel relationships are merged according to the
// configured model.Aggregation; property values are stored uncompressed next
// to the targets.
//
// # Reading
//
//	graph.ForEachRelationship(node, func(source, target uint64) bool {
//	    return true
//	})
//	graph.ForEachRelationshipWithProperty(node, "weight", func(source, target uint64, w float64) bool {
//	    return true
//	})
//
// # Errors
//
// Build errors are classified as ErrConfiguration, ErrResourceExhausted or
// ErrCancelled; errors.Is works for the class and the underlying cause.
// A failed build never publishes a partial graph.
package csrgo
