// Package container implements the paged arrays behind the id map.
//
//   - SegmentedArray: append-only growable array written at distinct indexes
//     by concurrent producers; holds insertion-order external ids.
//   - SparseArray: fixed-capacity, lazily paged array with lock-free
//     set-if-absent; holds the external -> internal id mapping.
//   - Directory: lock-free radix directory of lazily created leaves over the
//     full 64-bit slot space; backs SparseArray and the label bitsets.
package container
