package partition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/csrgo/internal/resource"
)

func TestRanges(t *testing.T) {
	tests := []struct {
		name  string
		n     uint64
		parts int
		want  []Range
	}{
		{"empty", 0, 4, nil},
		{"even", 8, 4, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"uneven", 10, 3, []Range{{0, 4}, {4, 8}, {8, 10}}},
		{"more parts than ids", 2, 8, []Range{{0, 1}, {1, 2}}},
		{"zero parts", 3, 0, []Range{{0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ranges(tt.n, tt.parts))
		})
	}
}

func TestChunks(t *testing.T) {
	c := NewChunks(10, 4)

	var got []Range
	for r, ok := c.Next(); ok; r, ok = c.Next() {
		got = append(got, r)
	}
	assert.Equal(t, []Range{{0, 4}, {4, 8}, {8, 10}}, got)
	assert.Equal(t, uint64(2), got[2].Len())
}

func TestChunks_Concurrent(t *testing.T) {
	c := NewChunks(100_000, 7)
	var total atomic.Uint64

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r, ok := c.Next(); ok; r, ok = c.Next() {
				total.Add(r.Len())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100_000), total.Load())
}

func TestForEachRange(t *testing.T) {
	out := make([]uint64, 1000)
	err := ForEachRange(t.Context(), nil, uint64(len(out)), 4, func(_ context.Context, r Range) error {
		for i := r.Start; i < r.End; i++ {
			out[i] = i + 1
		}
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, uint64(i+1), v)
	}
}

func TestRun_ErrorCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	err := Run(t.Context(), nil, 4, func(ctx context.Context, worker int) error {
		if worker == 0 {
			return boom
		}
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var calls atomic.Int32
	err := Run(ctx, nil, 2, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRun_WorkerSlots(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 1})

	var running, peak atomic.Int32
	err := Run(t.Context(), rc, 4, func(context.Context, int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}
