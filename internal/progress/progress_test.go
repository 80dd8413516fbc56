package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    sync.Mutex
	calls [][2]uint64
}

func (r *recorder) fn(stage string, done, total uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]uint64{done, total})
}

func TestReporter_Throttles(t *testing.T) {
	rec := &recorder{}
	r := New(rec.fn, "compress", 1000, time.Hour)

	for i := 0; i < 1000; i++ {
		r.Add(1)
	}
	r.Done()

	// the first Add and the final Done
	assert.Equal(t, [][2]uint64{{1, 1000}, {1000, 1000}}, rec.calls)
}

func TestReporter_ClampsToTotal(t *testing.T) {
	rec := &recorder{}
	r := New(rec.fn, "nodes", 5, time.Hour)
	r.Add(10)
	assert.Equal(t, [][2]uint64{{5, 5}}, rec.calls)
}

func TestReporter_Nil(t *testing.T) {
	r := New(nil, "nodes", 5, 0)
	assert.Nil(t, r)
	r.Add(1)
	r.Done()
}
