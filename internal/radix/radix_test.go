package radix

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edge struct {
	src, tgt, ref, prop uint64
}

func flatten(edges []edge) (pairs, refs, props []uint64) {
	for _, e := range edges {
		pairs = append(pairs, e.src, e.tgt)
		refs = append(refs, e.ref)
		props = append(props, e.prop)
	}
	return pairs, refs, props
}

func collect(pairs, refs, props []uint64) []edge {
	out := make([]edge, len(refs))
	for i := range out {
		out[i] = edge{pairs[2*i], pairs[2*i+1], refs[i], props[i]}
	}
	return out
}

func randomEdges(rng *rand.Rand, n int, maxID int64) []edge {
	edges := make([]edge, n)
	for i := range edges {
		edges[i] = edge{
			src:  uint64(rng.Int63n(maxID)),
			tgt:  uint64(rng.Int63n(maxID)),
			ref:  uint64(i),
			prop: uint64(i) * 10,
		}
	}
	return edges
}

func TestSort_MatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name  string
		n     int
		maxID int64
		key   Key
	}{
		{"small ids by source", 1000, 50, BySource},
		{"small ids by target", 1000, 50, ByTarget},
		{"wide ids by source", 5000, 1 << 40, BySource},
		{"wide ids by target", 5000, 1 << 40, ByTarget},
		{"three byte ids", 20000, 1 << 20, BySource},
	}

	scratch := NewScratch(16)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := randomEdges(rng, tt.n, tt.maxID)
			pairs, refs, props := flatten(edges)

			want := append([]edge(nil), edges...)
			sort.SliceStable(want, func(i, j int) bool {
				if tt.key == BySource {
					return want[i].src < want[j].src
				}
				return want[i].tgt < want[j].tgt
			})

			Sort(pairs, refs, props, tt.n, tt.key, scratch)
			assert.Equal(t, want, collect(pairs, refs, props))
		})
	}
}

func TestSort_PartialLength(t *testing.T) {
	pairs := []uint64{3, 0, 1, 0, 2, 0, 0, 0}
	refs := []uint64{30, 10, 20, 99}

	Sort(pairs, refs, nil, 3, BySource, nil)
	assert.Equal(t, []uint64{1, 0, 2, 0, 3, 0, 0, 0}, pairs)
	assert.Equal(t, []uint64{10, 20, 30, 99}, refs)
}

func TestSort_Trivial(t *testing.T) {
	pairs := []uint64{5, 6}
	Sort(pairs, nil, nil, 1, BySource, nil)
	assert.Equal(t, []uint64{5, 6}, pairs)

	// all zero keys need no pass at all
	pairs = []uint64{0, 2, 0, 1}
	refs := []uint64{1, 2}
	Sort(pairs, refs, nil, 2, BySource, nil)
	assert.Equal(t, []uint64{0, 2, 0, 1}, pairs)
	assert.Equal(t, []uint64{1, 2}, refs)
}

func TestSort_Deterministic(t *testing.T) {
	edges := randomEdges(rand.New(rand.NewSource(1)), 3000, 1000)

	p1, r1, q1 := flatten(edges)
	p2, r2, q2 := flatten(edges)
	Sort(p1, r1, q1, len(edges), BySource, nil)
	Sort(p2, r2, q2, len(edges), BySource, NewScratch(len(edges)))

	require.Equal(t, p1, p2)
	require.Equal(t, r1, r2)
	require.Equal(t, q1, q2)
}
