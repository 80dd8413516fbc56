// Package bitset provides a sparse lock-free bitset for concurrent writers.
//
// Bits live in 8 KiB segments (65536 bits) held by a container.Directory.
// A segment exists only once one of its bits is set, so label membership of
// nodes with arbitrary external ids costs memory per touched segment.
//
// Used by the id map builder to record label membership by external node id
// while many loaders insert nodes at once. The bitset is read only after all
// writers are done, when it is transposed into the final label index.
package bitset
