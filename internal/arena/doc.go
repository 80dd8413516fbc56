// Package arena provides the page allocator the adjacency compressors write through.
//
// A PageList is a shared, growable collection of power-of-two sized pages.
// Each worker obtains its own Allocator from the list and bump-allocates
// contiguous regions inside its current page without synchronization. Only
// when the current page is exhausted does the allocator take the list's lock
// to append a fresh page.
//
// # Offsets
//
// Write returns an opaque uint64 address:
//
//	offset = pageIndex << pageShift | offsetInPage
//
// A write larger than a page gets a dedicated, exactly sized page and an
// offsetInPage of zero, so every region is contiguous within one page.
// Offsets are only resolved by Pages, never dereferenced as pointers.
//
// # Lifecycle
//
//	list := arena.NewPageList[byte](arena.DefaultPageSize)
//	alloc := list.NewAllocator() // one per goroutine
//	off, err := alloc.Write(buf, len(buf))
//	alloc.Close()
//	pages, err := list.IntoPages() // once, after all allocators are closed
//
// Page memory can be accounted against a MemoryAcquirer. A refused
// acquisition is reported as ErrResourceExhausted and is never retried.
package arena
