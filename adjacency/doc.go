// Package adjacency builds and reads the compressed sparse row (CSR)
// adjacency of a graph.
//
// Construction is a two phase pipeline:
//
//  1. Loaders append each node's targets and property values to a Buffer.
//     Targets are kept as plain varints in arrival order.
//  2. Once all relationships are loaded, every node is compressed exactly
//     once by a Compressor: targets are decoded, mapped, sorted, aggregated
//     and written through page allocators. The Factory records the node's
//     degree, target offset and property offsets.
//
// Two strategies exist and are chosen once per graph:
//
//   - model.CompressionDelta stores sorted targets as delta encoded varints.
//   - model.CompressionRaw stores sorted targets as plain 64-bit words.
//
// Property values are never compressed. They are stored as 64-bit words
// aligned with the targets of each node, one page list per property column.
//
// The lists returned by Factory.Build are immutable and safe for concurrent
// readers.
package adjacency
