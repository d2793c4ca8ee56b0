package worklist

// LevelStealing is a per-thread FIFO worklist with cross-thread
// fallback stealing: Pop(threadID) first drains the caller's own queue,
// then steals from the next nonempty queue in ring order starting just
// past threadID. This is spec.md §4.2.3's aborted-items retry list
// policy: "level-stealing over FIFO, yielding per-thread locality with
// cross-thread fallback."
type LevelStealing[V any] struct {
	queues []*FIFO[V]
}

// NewLevelStealing creates a LevelStealing list with one FIFO queue per
// worker thread.
func NewLevelStealing[V any](numThreads int) *LevelStealing[V] {
	if numThreads <= 0 {
		numThreads = 1
	}
	qs := make([]*FIFO[V], numThreads)
	for i := range qs {
		qs[i] = NewFIFO[V]()
	}
	return &LevelStealing[V]{queues: qs}
}

// Push enqueues v onto threadID's own queue.
func (l *LevelStealing[V]) Push(threadID int, v V) {
	l.queues[threadID%len(l.queues)].Push(v)
}

// Pop tries threadID's own queue first, then steals from the next
// nonempty queue in ring order.
func (l *LevelStealing[V]) Pop(threadID int) (v V, ok bool) {
	n := len(l.queues)
	self := threadID % n
	if v, ok := l.queues[self].Pop(); ok {
		return v, true
	}
	for i := 1; i < n; i++ {
		idx := (self + i) % n
		if v, ok := l.queues[idx].Pop(); ok {
			return v, true
		}
	}
	return v, false
}

// Empty reports whether every per-thread queue is empty.
func (l *LevelStealing[V]) Empty() bool {
	for _, q := range l.queues {
		if q.Len() > 0 {
			return false
		}
	}
	return true
}

// NumThreads returns the number of per-thread queues.
func (l *LevelStealing[V]) NumThreads() int { return len(l.queues) }
