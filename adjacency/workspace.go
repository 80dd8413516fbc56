package adjacency

import (
	"cmp"
	"math"
	"slices"

	"github.com/hupe1980/csrgo/internal/varint"
	"github.com/hupe1980/csrgo/model"
)

// workspace holds the per-compressor scratch buffers. It is reused across
// nodes and owned by one goroutine.
type workspace struct {
	targets []uint64
	props   [][]uint64
	order   []int
	tmp     []uint64
}

func newWorkspace(columns int) *workspace {
	return &workspace{props: make([][]uint64, columns)}
}

func resize(s []uint64, n int) []uint64 {
	if cap(s) < n {
		return make([]uint64, n, max(n, 2*cap(s)))
	}
	return s[:n]
}

// load decodes the targets of e through mapFn into the workspace and copies
// the property columns. Targets mapped to model.NotFound are dropped. It
// returns the number of remaining relationships.
func (w *workspace) load(node uint64, e *Entry, mapFn func(uint64) uint64) (int, error) {
	if len(e.Properties) != len(w.props) {
		return 0, &ErrPropertyCountMismatch{Node: node, Expected: len(w.props), Actual: len(e.Properties)}
	}
	for _, col := range e.Properties {
		if len(col) != e.Count {
			return 0, &ErrPropertyCountMismatch{Node: node, Expected: e.Count, Actual: len(col)}
		}
	}

	n := e.Count
	w.targets = resize(w.targets, n)
	if _, err := varint.Decode(e.Targets, n, w.targets, mapFn); err != nil {
		return 0, err
	}
	for i, col := range e.Properties {
		w.props[i] = resize(w.props[i], n)
		copy(w.props[i], col)
	}

	if mapFn == nil {
		return n, nil
	}

	kept := 0
	for i := 0; i < n; i++ {
		if w.targets[i] == model.NotFound {
			continue
		}
		w.targets[kept] = w.targets[i]
		for _, col := range w.props {
			col[kept] = col[i]
		}
		kept++
	}
	return kept, nil
}

// sortAndAggregate orders the first n targets ascending and merges parallel
// relationships when merge is set. Property columns follow the targets
// through one stable permutation, so ties keep arrival order in every
// column. It returns the resulting degree.
//
// Arrival order is the order in which loaders flushed into the Buffer. With
// several concurrent loaders that order varies between runs, and so do
// SINGLE picks and the last bits of floating point SUM results.
func (w *workspace) sortAndAggregate(n int, aggs []model.Aggregation, merge bool) int {
	targets := w.targets[:n]

	if len(w.props) == 0 {
		slices.Sort(targets)
		if !merge {
			return n
		}
		return len(slices.Compact(targets))
	}

	w.sortIndirect(n)
	if !merge {
		return n
	}

	out := 0
	for i := 0; i < n; {
		j := i + 1
		for j < n && targets[j] == targets[i] {
			j++
		}

		targets[out] = targets[i]
		for c, agg := range aggs {
			col := w.props[c]
			v := agg.Normalize(math.Float64frombits(col[i]))
			for k := i + 1; k < j; k++ {
				v = agg.Merge(v, math.Float64frombits(col[k]))
			}
			col[out] = math.Float64bits(v)
		}

		out++
		i = j
	}
	return out
}

func (w *workspace) sortIndirect(n int) {
	targets := w.targets[:n]

	if slices.IsSorted(targets) {
		return
	}

	if cap(w.order) < n {
		w.order = make([]int, n, max(n, 2*cap(w.order)))
	}
	order := w.order[:n]
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(targets[a], targets[b])
	})

	w.tmp = resize(w.tmp, n)
	permute(targets, order, w.tmp)
	for _, col := range w.props {
		permute(col[:n], order, w.tmp)
	}
}

func permute(values []uint64, order []int, tmp []uint64) {
	for i, src := range order {
		tmp[i] = values[src]
	}
	copy(values, tmp[:len(values)])
}
