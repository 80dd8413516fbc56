package idmap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/csrgo/model"
)

func buildMap(t *testing.T, cfg BuildConfig, ids ...uint64) *ArrayIDMap {
	t.Helper()
	b := NewBuilder()
	for _, id := range ids {
		require.NoError(t, b.AddNode(id))
	}
	m, err := b.Build(context.Background(), cfg)
	require.NoError(t, err)
	return m
}

func TestBuild_Bijection(t *testing.T) {
	m := buildMap(t, BuildConfig{Concurrency: 4, Checked: true}, 42, 7, 1000, 3)

	assert.Equal(t, uint64(4), m.NodeCount())
	assert.Equal(t, uint64(1000), m.HighestExternalID())

	// insertion order defines dense ids
	assert.Equal(t, uint64(0), m.ToInternal(42))
	assert.Equal(t, uint64(1), m.ToInternal(7))
	assert.Equal(t, uint64(2), m.ToInternal(1000))
	assert.Equal(t, uint64(3), m.ToInternal(3))

	for id := range m.NodeCount() {
		assert.Equal(t, id, m.ToInternal(m.ToExternal(id)))
	}

	assert.Equal(t, model.NotFound, m.ToInternal(8))
	assert.Equal(t, model.NotFound, m.ToInternal(1001))
	assert.Equal(t, model.NotFound, m.ToInternal(model.NotFound))
	assert.True(t, m.Contains(1000))
	assert.False(t, m.Contains(999))
}

func TestBuild_Sorted(t *testing.T) {
	m := buildMap(t, BuildConfig{Sorted: true}, 30, 10, 20)

	assert.Equal(t, uint64(10), m.ToExternal(0))
	assert.Equal(t, uint64(20), m.ToExternal(1))
	assert.Equal(t, uint64(30), m.ToExternal(2))
	assert.Equal(t, uint64(2), m.ToInternal(30))
}

func TestBuild_Empty(t *testing.T) {
	m := buildMap(t, BuildConfig{})

	assert.Equal(t, uint64(0), m.NodeCount())
	assert.Equal(t, model.NotFound, m.ToInternal(0))
	assert.Equal(t, []model.NodeLabel{model.AllNodes}, m.AvailableLabels())
}

func TestBuild_HugeExternalIDs(t *testing.T) {
	huge := []uint64{10, 1 << 40, 1 << 62, model.NotFound - 1}

	t.Run("unlabeled", func(t *testing.T) {
		m := buildMap(t, BuildConfig{Concurrency: 2, Checked: true}, huge...)

		assert.Equal(t, uint64(4), m.NodeCount())
		assert.Equal(t, model.NotFound-1, m.HighestExternalID())
		for i, id := range huge {
			assert.Equal(t, uint64(i), m.ToInternal(id))
			assert.Equal(t, id, m.ToExternal(uint64(i)))
		}
		assert.Equal(t, model.NotFound, m.ToInternal(1<<40+1))
		// one page per id, no directory sized by the largest id
		assert.Equal(t, int64(len(huge))*4096*8, m.internalOf.SizeInBytes())
		assert.Less(t, m.SizeInBytes(), int64(1<<20))
	})

	t.Run("labeled", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.AddNode(10, "Small"))
		require.NoError(t, b.AddNodes(huge[1:], "Big"))

		m, err := b.Build(context.Background(), BuildConfig{Concurrency: 2, Checked: true})
		require.NoError(t, err)

		assert.Equal(t, []model.NodeLabel{"Small"}, m.NodeLabels(0))
		for i := 1; i < len(huge); i++ {
			assert.Equal(t, []model.NodeLabel{"Big"}, m.NodeLabels(uint64(i)))
		}
		assert.Equal(t, uint64(3), m.LabelCount("Big"))
	})

	t.Run("duplicate", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.AddNode(1<<62))
		require.NoError(t, b.AddNode(1<<62))

		_, err := b.Build(context.Background(), BuildConfig{Checked: true})
		var dup *ErrDuplicateNodeID
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, uint64(1<<62), dup.NodeID)
	})
}

func TestBuild_DuplicateChecked(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNodes([]uint64{1, 2, 3, 2}))

	m, err := b.Build(context.Background(), BuildConfig{Checked: true, Concurrency: 2})
	require.Error(t, err)
	assert.Nil(t, m)

	var dup *ErrDuplicateNodeID
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, uint64(2), dup.NodeID)
}

func TestBuild_DuplicateUnchecked(t *testing.T) {
	m := buildMap(t, BuildConfig{Concurrency: 1}, 5, 5)

	assert.Equal(t, uint64(2), m.NodeCount())
	assert.Equal(t, uint64(1), m.ToInternal(5))
}

func TestBuild_HighestExternalID(t *testing.T) {
	t.Run("explicit bound", func(t *testing.T) {
		highest := uint64(100)
		m := buildMap(t, BuildConfig{HighestExternalID: &highest}, 1, 2)
		assert.Equal(t, uint64(100), m.HighestExternalID())
	})

	t.Run("id above bound", func(t *testing.T) {
		highest := uint64(10)
		b := NewBuilder()
		require.NoError(t, b.AddNode(11))

		_, err := b.Build(context.Background(), BuildConfig{HighestExternalID: &highest})
		var oor *ErrNodeIDOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, uint64(11), oor.NodeID)
		assert.Equal(t, uint64(10), oor.Highest)
	})
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.AddNode(model.NotFound), ErrInvalidNodeID)
	assert.ErrorIs(t, b.AddNodes([]uint64{1, model.NotFound}), ErrInvalidNodeID)

	_, err := b.Build(context.Background(), BuildConfig{})
	require.NoError(t, err)

	assert.ErrorIs(t, b.AddNode(1), ErrAlreadyBuilt)
	_, err = b.Build(context.Background(), BuildConfig{})
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestBuild_Cancelled(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNodes([]uint64{1, 2, 3}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, BuildConfig{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuild_Concurrent(t *testing.T) {
	const (
		producers = 8
		perWorker = 5000
	)

	b := NewBuilder()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				id := uint64(i*producers + p) //nolint:gosec
				label := model.NodeLabel("even")
				if id%2 == 1 {
					label = "odd"
				}
				assert.NoError(t, b.AddNode(id, label))
			}
		}()
	}
	wg.Wait()

	m, err := b.Build(context.Background(), BuildConfig{Concurrency: 4, Checked: true})
	require.NoError(t, err)
	require.Equal(t, uint64(producers*perWorker), m.NodeCount())

	seen := make(map[uint64]struct{}, m.NodeCount())
	m.ForEachNode(func(id uint64) bool {
		ext := m.ToExternal(id)
		seen[ext] = struct{}{}
		assert.Equal(t, id, m.ToInternal(ext))
		if ext%2 == 0 {
			assert.True(t, m.HasLabel(id, "even"))
		} else {
			assert.True(t, m.HasLabel(id, "odd"))
		}
		return true
	})
	assert.Len(t, seen, producers*perWorker)
	assert.Equal(t, uint64(producers*perWorker/2), m.LabelCount("even"))
}

func TestBuild_Progress(t *testing.T) {
	var last [2]uint64
	b := NewBuilder()
	require.NoError(t, b.AddNodes([]uint64{1, 2, 3, 4}))

	_, err := b.Build(context.Background(), BuildConfig{
		Progress: func(stage string, done, total uint64) {
			assert.Equal(t, "idmap", stage)
			last = [2]uint64{done, total}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, [2]uint64{4, 4}, last)
}

func TestLabels(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(10, "A"))
	require.NoError(t, b.AddNode(20, "B"))
	require.NoError(t, b.AddNode(30, "A", "B"))
	require.NoError(t, b.AddNode(40))

	m, err := b.Build(context.Background(), BuildConfig{})
	require.NoError(t, err)

	assert.Equal(t, []model.NodeLabel{"A", "B"}, m.AvailableLabels())
	assert.Equal(t, []model.NodeLabel{"A"}, m.NodeLabels(0))
	assert.Equal(t, []model.NodeLabel{"A", "B"}, m.NodeLabels(2))
	assert.Empty(t, m.NodeLabels(3))

	assert.True(t, m.HasLabel(3, model.AllNodes))
	assert.False(t, m.HasLabel(3, "A"))
	assert.False(t, m.HasLabel(99, model.AllNodes))
	assert.Equal(t, uint64(2), m.LabelCount("B"))
	assert.Equal(t, uint64(4), m.LabelCount(model.AllNodes))
	assert.Equal(t, uint64(0), m.LabelCount("C"))
}

func TestLabels_Unlabeled(t *testing.T) {
	m := buildMap(t, BuildConfig{}, 1, 2)

	assert.Equal(t, []model.NodeLabel{model.AllNodes}, m.NodeLabels(0))
	assert.True(t, m.HasLabel(1, model.AllNodes))
}

func TestFilteredIDMap(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(10, "A"))
	require.NoError(t, b.AddNode(20, "B"))
	require.NoError(t, b.AddNode(30, "A", "B"))
	require.NoError(t, b.AddNode(40, "C"))

	root, err := b.Build(context.Background(), BuildConfig{})
	require.NoError(t, err)

	f, err := root.WithFilteredLabels(context.Background(), 2, "A")
	require.NoError(t, err)

	assert.Equal(t, uint64(2), f.NodeCount())
	assert.Equal(t, uint64(40), f.HighestExternalID())
	assert.Equal(t, uint64(0), f.ToInternal(10))
	assert.Equal(t, uint64(1), f.ToInternal(30))
	assert.Equal(t, model.NotFound, f.ToInternal(20))
	assert.Equal(t, model.NotFound, f.ToInternal(99))
	assert.Equal(t, uint64(30), f.ToExternal(1))
	assert.False(t, f.Contains(40))

	assert.Equal(t, uint64(2), f.ToRootNodeID(1))
	assert.Equal(t, uint64(1), f.ToFilteredNodeID(2))
	assert.Equal(t, model.NotFound, f.ToFilteredNodeID(1))
	assert.Same(t, root, f.RootIDMap())

	// only selected labels are visible
	assert.Equal(t, []model.NodeLabel{"A"}, f.NodeLabels(1))
	assert.Equal(t, []model.NodeLabel{"A"}, f.AvailableLabels())
	assert.False(t, f.HasLabel(1, "B"))

	var visited []uint64
	f.ForEachNode(func(id uint64) bool {
		visited = append(visited, id)
		return true
	})
	assert.Equal(t, []uint64{0, 1}, visited)
}

func TestFilteredIDMap_Union(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNodes([]uint64{5, 6}, "A"))
	require.NoError(t, b.AddNodes([]uint64{7, 8}, "B"))
	require.NoError(t, b.AddNode(9, "C"))

	root, err := b.Build(context.Background(), BuildConfig{})
	require.NoError(t, err)

	f, err := root.WithFilteredLabels(context.Background(), 1, "B", "A", "B")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), f.NodeCount())
	assert.Equal(t, []model.NodeLabel{"A", "B"}, f.AvailableLabels())

	// refiltering goes through the root
	g, err := f.WithFilteredLabels(context.Background(), 1, "B")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.NodeCount())
	assert.Equal(t, uint64(0), g.ToInternal(7))
	assert.Equal(t, uint64(2), g.ToRootNodeID(0))

	// C is a root label but no node of f carries it
	empty, err := f.WithFilteredLabels(context.Background(), 1, "C")
	require.NoError(t, err)
	assert.Zero(t, empty.NodeCount())
	assert.Equal(t, model.NotFound, empty.ToInternal(9))

	_, err = f.WithFilteredLabels(context.Background(), 1, "missing")
	var unknown *ErrUnknownLabel
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, model.NodeLabel("missing"), unknown.Label)
}

func TestFilteredIDMap_AllNodes(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(1, "A"))
	require.NoError(t, b.AddNode(2))

	root, err := b.Build(context.Background(), BuildConfig{})
	require.NoError(t, err)

	f, err := root.WithFilteredLabels(context.Background(), 1, model.AllNodes)
	require.NoError(t, err)
	assert.Equal(t, root.NodeCount(), f.NodeCount())
	assert.Equal(t, []model.NodeLabel{"A"}, f.AvailableLabels())

	_, err = root.WithFilteredLabels(context.Background(), 1, "missing")
	assert.Error(t, err)
}
