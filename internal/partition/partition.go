// Package partition splits node id ranges across a bounded set of workers.
//
// Two shapes are used by the build stages:
//
//   - Ranges: a fixed number of contiguous, disjoint ranges, one per worker.
//     Used where each worker writes a disjoint slice of a shared array.
//   - Chunks: many small ranges handed out on demand, so that workers with
//     cheap nodes pick up more work than workers with high-degree nodes.
//
// Workers run under an errgroup; the first error cancels the others.
package partition

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/csrgo/internal/resource"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of ids in the range.
func (r Range) Len() uint64 { return r.End - r.Start }

// Ranges splits [0, n) into at most parts contiguous ranges of nearly equal
// size. Empty ranges are never returned.
func Ranges(n uint64, parts int) []Range {
	if n == 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	p := uint64(parts)
	if p > n {
		p = n
	}

	size := (n + p - 1) / p
	out := make([]Range, 0, p)
	for start := uint64(0); start < n; start += size {
		out = append(out, Range{Start: start, End: min(start+size, n)})
	}
	return out
}

// Chunks hands out consecutive ranges of a fixed size. It is safe for
// concurrent use.
type Chunks struct {
	n      uint64
	size   uint64
	cursor atomic.Uint64
}

// NewChunks creates a chunk source over [0, n).
func NewChunks(n, size uint64) *Chunks {
	if size == 0 {
		size = 1
	}
	return &Chunks{n: n, size: size}
}

// Next returns the next unclaimed range.
func (c *Chunks) Next() (Range, bool) {
	start := c.cursor.Add(c.size) - c.size
	if start >= c.n {
		return Range{}, false
	}
	return Range{Start: start, End: min(start+c.size, c.n)}, true
}

// Run starts workers goroutines and waits for all of them. Every worker holds
// a worker slot of rc for its whole lifetime; rc may be nil. The context
// passed to fn is cancelled as soon as one worker fails.
func Run(ctx context.Context, rc *resource.Controller, workers int, fn func(ctx context.Context, worker int) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			if err := rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer rc.ReleaseWorker()

			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, w)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ForEachRange runs fn for every range of Ranges(n, workers) in parallel.
func ForEachRange(ctx context.Context, rc *resource.Controller, n uint64, workers int, fn func(ctx context.Context, r Range) error) error {
	ranges := Ranges(n, workers)
	if len(ranges) == 0 {
		return ctx.Err()
	}
	return Run(ctx, rc, len(ranges), func(ctx context.Context, worker int) error {
		return fn(ctx, ranges[worker])
	})
}
