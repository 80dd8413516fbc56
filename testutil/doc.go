// Package testutil provides deterministic graph generators for tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Graphs
//
//	rng := testutil.NewRNG(seed)
//	ids := rng.NodeIDs(1000, 1<<20)      // distinct external ids
//	edges := rng.Edges(1000, 10000, 1)   // dense ids with one weight each
//
// # Adjacency Fixtures
//
//	targets := rng.SortedTargets(10000, 1<<40)
//	want := testutil.GroupBySource(edges)
package testutil
