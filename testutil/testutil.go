package testutil

import (
	"math/rand"
	"slices"
	"sync"
)

// Edge is a generated relationship in the dense id space.
type Edge struct {
	Source     uint64
	Target     uint64
	Properties []float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64n returns a pseudo-random number in [0,n).
func (r *RNG) Uint64n(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uint64nLocked(n)
}

func (r *RNG) uint64nLocked(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return r.rand.Uint64() % n
}

// NodeIDs returns n distinct external ids in [0, highest] in random order.
func (r *RNG) NodeIDs(n int, highest uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]struct{}, n)
	ids := make([]uint64, 0, n)
	for len(ids) < n {
		id := r.uint64nLocked(highest + 1)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Edges returns count random relationships between dense ids in
// [0, nodeCount), each with the given number of properties in [0, 100).
// Parallel relationships and self loops occur.
func (r *RNG) Edges(nodeCount uint64, count, properties int) []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()

	edges := make([]Edge, count)
	for i := range edges {
		e := Edge{
			Source: r.uint64nLocked(nodeCount),
			Target: r.uint64nLocked(nodeCount),
		}
		if properties > 0 {
			e.Properties = make([]float64, properties)
			for p := range e.Properties {
				e.Properties[p] = float64(r.rand.Intn(100))
			}
		}
		edges[i] = e
	}
	return edges
}

// SortedTargets returns n ascending targets whose successive gaps are
// drawn from [0, maxGap). The sum of gaps does not overflow for
// n * maxGap < 2^64.
func (r *RNG) SortedTargets(n int, maxGap uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, n)
	var last uint64
	for i := range out {
		last += r.uint64nLocked(maxGap)
		out[i] = last
	}
	return out
}

// Shuffle returns a shuffled copy of values.
func (r *RNG) Shuffle(values []uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := slices.Clone(values)
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// GroupBySource returns the relationships of every source node in input order.
func GroupBySource(edges []Edge) map[uint64][]Edge {
	out := make(map[uint64][]Edge)
	for _, e := range edges {
		out[e.Source] = append(out[e.Source], e)
	}
	return out
}

// Degrees returns the number of relationships per source node.
func Degrees(nodeCount uint64, edges []Edge) []uint32 {
	out := make([]uint32, nodeCount)
	for _, e := range edges {
		out[e.Source]++
	}
	return out
}
