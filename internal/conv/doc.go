// Package conv provides checked integer conversions.
//
// Node ids and offsets are uint64 throughout the graph store while Go slices
// are indexed by int and degrees are stored as uint32. The helpers here are
// used at the boundaries where a silent wrap-around would corrupt the
// structure (degree arrays, page indexes, user supplied capacities).
//
// Conversions that are provably safe by construction (loop indices, values
// masked to a page size) use plain casts instead.
package conv
