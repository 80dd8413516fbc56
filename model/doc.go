// Package model defines the value types shared by the graph store packages.
//
// # Identity Types
//
//   - ExternalID: node identifier supplied by the loader (uint64, sparse)
//   - NodeID: dense internal identifier in [0, nodeCount)
//   - NotFound: sentinel returned for unmapped identifiers
//
// # Labels
//
//   - NodeLabel: a named node label
//   - AllNodes: the implicit label every node carries when no labels exist
//
// # Construction Settings
//
//   - Aggregation: merge policy for parallel relationships
//   - Orientation: natural, reverse or undirected loading
//   - Compression: raw or delta/varint adjacency storage
package model
