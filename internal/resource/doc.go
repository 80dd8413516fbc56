// Package resource implements the Controller that governs memory and
// worker slots during graph construction.
//
// Two resources are managed:
//
//   - Memory: every page handed out by the page allocator is accounted
//     here. Acquisition is non-blocking and fails fast with
//     ErrMemoryLimitExceeded, which the allocator reports as resource
//     exhaustion.
//   - Workers: the number of goroutines that may run a build stage at the
//     same time across all builds sharing one controller.
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	    MaxWorkers:       8,
//	})
//
//	if err := rc.AcquireMemory(pageBytes); err != nil {
//	    return err // fatal, not retried
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
// This allows optional limits without nil checks at call sites.
package resource
