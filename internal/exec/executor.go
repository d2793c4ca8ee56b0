package exec

import (
	"sync"
	"sync/atomic"

	"github.com/gthost/cusp-gluon/internal/stats"
	"github.com/gthost/cusp-gluon/internal/worklist"
)

// Operator is the user-supplied function run once per work item.
// Calling ctx.Conflict() aborts and retries the iteration; calling
// ctx.Break() requests the cooperative break of spec.md §4.2.
type Operator[V any] func(item V, ctx Context[V])

// Traits are spec.md §4.2.4's compile/spec-time operator traits,
// represented as plain runtime booleans since Go has no template
// parameters to branch on at compile time: CollectStats, NeedsBreak,
// NeedsPush, NeedsContext, NeedsPIA. Correctness never depends on these
// (per spec.md §4.2.4); they only toggle whether the executor bothers
// with the corresponding bookkeeping. NeedsContext and NeedsPIA are
// accepted for interface parity with the original but have no effect
// here: this executor always hands the operator a Context (there is no
// context-free call path to elide), and Go's garbage collector stands
// in for the original's per-iteration bump allocator (spec.md §5).
type Traits struct {
	CollectStats bool
	NeedsBreak   bool
	NeedsPush    bool
	NeedsContext bool
	NeedsPIA     bool
}

// DefaultTraits enables every trait.
func DefaultTraits() Traits {
	return Traits{CollectStats: true, NeedsBreak: true, NeedsPush: true, NeedsContext: true, NeedsPIA: true}
}

// Config configures a new Executor.
type Config struct {
	NumWorkers int
	LoopName   string
	Traits     Traits
	Stats      *stats.LoopStatistics // optional; nil disables Prometheus-backed counting
}

// Executor runs one for_each loop per spec.md §4.2: a global worklist,
// a per-worker reusable Context, a leader-drained aborted-retry list,
// and cooperative break plus token-style termination detection.
type Executor[V any] struct {
	numWorkers int
	op         Operator[V]
	traits     Traits
	loopName   string

	global  *worklist.FIFO[V]
	aborted *worklist.LevelStealing[V]
	locks   *lockManager
	term    *TerminationDetector
	stats   *stats.LoopStatistics

	iterStates []*iterState[V]

	breakHappened atomic.Bool
	abortHappened atomic.Bool
}

// New creates an Executor for op with the given configuration.
func New[V any](op Operator[V], cfg Config) *Executor[V] {
	n := cfg.NumWorkers
	if n <= 0 {
		n = 1
	}
	e := &Executor[V]{
		numWorkers: n,
		op:         op,
		traits:     cfg.Traits,
		loopName:   cfg.LoopName,
		global:     worklist.NewFIFO[V](),
		aborted:    worklist.NewLevelStealing[V](n),
		locks:      newLockManager(),
		term:       NewTerminationDetector(n),
		stats:      cfg.Stats,
		iterStates: make([]*iterState[V], n),
	}
	for i := range e.iterStates {
		e.iterStates[i] = &iterState[V]{locks: e.locks}
	}
	return e
}

// AddInitial statically partitions items across active workers (round-up
// chunk size) and pushes each worker's chunk, subject to filter, to the
// global worklist in parallel — spec.md §4.2.5's "fill phase", run as a
// barrier-separated phase so the main loop never races against it.
func (e *Executor[V]) AddInitial(items []V, filter func(V) bool) {
	n := len(items)
	if n == 0 {
		return
	}
	chunk := (n + e.numWorkers - 1) / e.numWorkers

	var wg sync.WaitGroup
	for w := 0; w < e.numWorkers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for _, v := range items[lo:hi] {
				if filter == nil || filter(v) {
					e.global.Push(v)
				}
			}
		}(lo, hi)
	}
	wg.Wait()
}

// Run drives every worker until the worklist and aborted list both
// quiesce (global termination) or a break is raised, per spec.md
// §4.2.2's worker loop.
func (e *Executor[V]) Run() {
	var wg sync.WaitGroup
	for w := 0; w < e.numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(workerID)
		}(w)
	}
	wg.Wait()
}

func (e *Executor[V]) worker(workerID int) {
	for {
		item, ok := e.global.Pop()
		if ok {
			e.term.WorkHappened(workerID)
		}
		for ok {
			if e.breakHappened.Load() {
				return
			}
			e.runIteration(workerID, item)
			if workerID == 0 && e.abortHappened.Load() {
				e.drainAborted(workerID)
			}
			item, ok = e.global.Pop()
		}

		if workerID == 0 && e.abortHappened.Load() {
			e.drainAborted(workerID)
		}
		if e.term.LocalTermination(workerID) {
			return
		}
		if e.breakHappened.Load() {
			return
		}
	}
}

// drainAborted is the leader-only retry drain spec.md §4.2.2 requires:
// "only the leader drains the aborted list to keep the retry path
// serialised and preserve progress." Any worker id could be made leader;
// this executor fixes workerID 0, matching the original's thread id 0.
func (e *Executor[V]) drainAborted(workerID int) {
	e.term.WorkHappened(workerID)
	e.abortHappened.Store(false)
	for {
		item, ok := e.aborted.Pop(workerID)
		if !ok {
			break
		}
		e.runIteration(workerID, item)
	}
}

func (e *Executor[V]) runIteration(workerID int, item V) {
	st := e.iterStates[workerID]
	st.reset(workerID)

	if e.traits.CollectStats && e.stats != nil {
		e.stats.Iteration()
	}

	e.op(item, st)

	if st.conflict {
		e.cancelIteration(st, item)
		return
	}
	e.commitIteration(st)
}

// cancelIteration implements the cancelling state of spec.md §4.2.1:
// clear acquired locks, count the conflict, re-enqueue the item on the
// aborted list, and raise abort_happened.
func (e *Executor[V]) cancelIteration(st *iterState[V], item V) {
	e.locks.release(st.acquired, st.workerID)
	if e.traits.CollectStats && e.stats != nil {
		e.stats.Conflict()
	}
	e.aborted.Push(st.workerID, item)
	e.abortHappened.Store(true)
}

// commitIteration implements the committing state of spec.md §4.2.1:
// release locks, drain the push buffer into the global worklist, and
// propagate a break request to the process-global flag.
func (e *Executor[V]) commitIteration(st *iterState[V]) {
	e.locks.release(st.acquired, st.workerID)
	if e.traits.NeedsPush {
		for _, v := range st.pushed {
			e.global.Push(v)
		}
	}
	if e.traits.NeedsBreak && st.breakReq {
		e.breakHappened.Store(true)
	}
	if e.traits.CollectStats && e.stats != nil {
		e.stats.Commit()
	}
}

// BreakHappened reports whether any iteration raised the break flag.
func (e *Executor[V]) BreakHappened() bool { return e.breakHappened.Load() }

// Stats returns the LoopStatistics this Executor was configured with,
// or nil if none was supplied.
func (e *Executor[V]) Stats() *stats.LoopStatistics { return e.stats }

// NumWorkers returns the configured worker count.
func (e *Executor[V]) NumWorkers() int { return e.numWorkers }
