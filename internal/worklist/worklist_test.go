package worklist_test

import (
	"sync"
	"testing"

	"github.com/gthost/cusp-gluon/internal/worklist"
	"github.com/stretchr/testify/require"
)

func TestFIFOPushPopOrder(t *testing.T) {
	f := worklist.NewFIFO[int]()
	f.Push(1)
	f.Push(2)
	f.Push(3)

	v, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = f.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestFIFOPopEmpty(t *testing.T) {
	f := worklist.NewFIFO[string]()
	_, ok := f.Pop()
	require.False(t, ok)
}

func TestFIFOConcurrentPushPop(t *testing.T) {
	f := worklist.NewFIFO[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			f.Push(v)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 100, f.Len())

	seen := make(map[int]bool)
	for {
		v, ok := f.Pop()
		if !ok {
			break
		}
		seen[v] = true
	}
	require.Len(t, seen, 100)
}

func TestLevelStealingOwnQueueFirst(t *testing.T) {
	l := worklist.NewLevelStealing[int](3)
	l.Push(0, 10)
	l.Push(1, 20)

	v, ok := l.Pop(0)
	require.True(t, ok)
	require.Equal(t, 10, v)
}

func TestLevelStealingCrossThreadFallback(t *testing.T) {
	l := worklist.NewLevelStealing[int](3)
	l.Push(1, 42)

	v, ok := l.Pop(0)
	require.True(t, ok)
	require.Equal(t, 42, v)
	require.True(t, l.Empty())
}

func TestLevelStealingEmptyReturnsFalse(t *testing.T) {
	l := worklist.NewLevelStealing[int](2)
	_, ok := l.Pop(0)
	require.False(t, ok)
}
