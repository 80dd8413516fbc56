// Package progress reports build progress through a side-effect free callback.
//
// Reports are throttled so that hot loops can call Add on every node without
// flooding the callback. The final report of a stage is always delivered.
package progress

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two throttled reports.
const DefaultInterval = 100 * time.Millisecond

// Func receives progress updates. done never exceeds total.
type Func func(stage string, done, total uint64)

// Reporter tracks the progress of one stage. A nil Reporter is a no-op.
type Reporter struct {
	fn        Func
	stage     string
	total     uint64
	done      atomic.Uint64
	sometimes *rate.Sometimes
}

// New creates a Reporter for stage. It returns nil when fn is nil.
func New(fn Func, stage string, total uint64, interval time.Duration) *Reporter {
	if fn == nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		fn:        fn,
		stage:     stage,
		total:     total,
		sometimes: &rate.Sometimes{First: 1, Interval: interval},
	}
}

// Add records n units of finished work.
func (r *Reporter) Add(n uint64) {
	if r == nil {
		return
	}
	done := r.done.Add(n)
	r.sometimes.Do(func() {
		r.fn(r.stage, min(done, r.total), r.total)
	})
}

// Done reports the stage as complete.
func (r *Reporter) Done() {
	if r == nil {
		return
	}
	r.fn(r.stage, r.total, r.total)
}
