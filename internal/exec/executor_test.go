package exec_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gthost/cusp-gluon/internal/exec"
	"github.com/gthost/cusp-gluon/internal/stats"
	"github.com/stretchr/testify/require"
)

// TestConflictThenSucceed covers spec.md §8 scenario 4: an operator
// that conflicts on an item's first attempt and succeeds on retry.
// Every item must be committed exactly once and the loop must
// terminate, with conflicts == iterations/2 (one conflicting attempt
// plus one successful attempt per item).
func TestConflictThenSucceed(t *testing.T) {
	const n = 50

	var attempts sync.Map // item -> *atomic.Int32
	var committed sync.Map

	st := stats.NewLoopStatistics(nil, "conflict-then-succeed")

	op := func(item int, ctx exec.Context[int]) {
		v, _ := attempts.LoadOrStore(item, new(atomic.Int32))
		counter := v.(*atomic.Int32)
		if counter.Add(1) == 1 {
			ctx.Conflict()
			return
		}
		committed.Store(item, true)
	}

	e := exec.New[int](op, exec.Config{
		NumWorkers: 4,
		Traits:     exec.DefaultTraits(),
		Stats:      st,
	})

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	e.AddInitial(items, nil)
	e.Run()

	for i := 0; i < n; i++ {
		_, ok := committed.Load(i)
		require.True(t, ok, "item %d never committed", i)
	}
	require.Equal(t, uint64(n), st.Commits())
	require.Equal(t, uint64(n), st.Conflicts())
	require.Equal(t, uint64(2*n), st.Iterations())
	require.False(t, e.BreakHappened())
}

// TestBreakStopsProgress covers spec.md §8 scenario 5: an operator
// that breaks on a specific value. Once the break is raised, items
// before the breaking value must all have committed, and the loop
// must terminate even though some items after it may be left
// unprocessed.
func TestBreakStopsProgress(t *testing.T) {
	const breakOn = 7
	const n = 10

	var mu sync.Mutex
	committed := make(map[int]bool)

	op := func(item int, ctx exec.Context[int]) {
		mu.Lock()
		committed[item] = true
		mu.Unlock()
		if item == breakOn {
			ctx.Break()
		}
	}

	e := exec.New[int](op, exec.Config{
		NumWorkers: 1,
		Traits:     exec.DefaultTraits(),
	})

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	e.AddInitial(items, nil)
	e.Run()

	require.True(t, e.BreakHappened())
	require.True(t, committed[breakOn], "the breaking item must itself commit")
	for i := 0; i < breakOn; i++ {
		require.True(t, committed[i], "item %d before the break must have committed", i)
	}
}

// TestPushedItemsAreProcessed exercises ctx.Push: an item under 4
// pushes its successor, and the loop must drain the resulting chain.
func TestPushedItemsAreProcessed(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)

	op := func(item int, ctx exec.Context[int]) {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
		if item < 4 {
			ctx.Push(item + 1)
		}
	}

	e := exec.New[int](op, exec.Config{NumWorkers: 2, Traits: exec.DefaultTraits()})
	e.AddInitial([]int{0}, nil)
	e.Run()

	for i := 0; i <= 4; i++ {
		require.True(t, seen[i], "item %d should have been processed", i)
	}
	require.False(t, e.BreakHappened())
}

// TestLockConflictsOnSharedResource exercises ctx.Lock: 20 items all
// lock the same resource across 8 workers, and every item must
// eventually commit once the loop retries the losers. Mutual exclusion
// itself is not asserted here.
func TestLockConflictsOnSharedResource(t *testing.T) {
	resource := "shared"
	var commits atomic.Int32

	op := func(item int, ctx exec.Context[int]) {
		if !ctx.Lock(resource) {
			return
		}
		commits.Add(1)
	}

	e := exec.New[int](op, exec.Config{NumWorkers: 8, Traits: exec.DefaultTraits()})
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	e.AddInitial(items, nil)
	e.Run()

	require.Equal(t, int32(20), commits.Load())
}

// TestFilterExcludesItems verifies AddInitial's filter keeps matching
// items out of the worklist entirely.
func TestFilterExcludesItems(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)

	op := func(item int, ctx exec.Context[int]) {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
	}

	e := exec.New[int](op, exec.Config{NumWorkers: 3, Traits: exec.DefaultTraits()})
	items := []int{0, 1, 2, 3, 4, 5}
	e.AddInitial(items, func(v int) bool { return v%2 == 0 })
	e.Run()

	require.True(t, seen[0])
	require.True(t, seen[2])
	require.True(t, seen[4])
	require.False(t, seen[1])
	require.False(t, seen[3])
	require.False(t, seen[5])
}
