package exec

import "sync"

// TerminationDetector implements spec.md §4.2's token-passing
// termination protocol as a round-based quiescence vote: each worker
// "surrenders its token" by calling LocalTermination once it finds the
// worklist empty; the round completes (and the token has made a full
// white circuit) once every worker has voted idle without any of them
// calling WorkHappened in between. A single WorkHappened call anywhere
// during a round "blackens the token": the round resets and every
// worker must vote idle again before termination can be declared. This
// is the explicit reimplementation spec.md §9 calls for — a sequential,
// easy-to-reason-about equivalent to the original's token handle,
// preserving the same observable guarantee (global termination is
// declared only when no worker has work in flight).
type TerminationDetector struct {
	mu         sync.Mutex
	numWorkers int
	isIdle     []bool
	idleCount  int
	dirty      bool
	terminated bool
}

// NewTerminationDetector creates a detector for numWorkers workers.
func NewTerminationDetector(numWorkers int) *TerminationDetector {
	return &TerminationDetector{
		numWorkers: numWorkers,
		isIdle:     make([]bool, numWorkers),
	}
}

// WorkHappened records that workerID popped (and is about to process) an
// item, per spec.md §4.2.2 step 2a: "If present, signal work-happened to
// the termination protocol."
func (td *TerminationDetector) WorkHappened(workerID int) {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.dirty = true
	if td.isIdle[workerID] {
		td.isIdle[workerID] = false
		td.idleCount--
	}
}

// LocalTermination records that workerID found no work available and
// returns whether global termination has since been declared, per
// spec.md §4.2.2 step 2c: "call local-termination and check global-
// termination; if not terminated, loop back to (a)."
func (td *TerminationDetector) LocalTermination(workerID int) bool {
	td.mu.Lock()
	defer td.mu.Unlock()
	if !td.isIdle[workerID] {
		td.isIdle[workerID] = true
		td.idleCount++
	}
	if td.idleCount == td.numWorkers {
		if td.dirty {
			td.dirty = false
			td.idleCount = 0
			for i := range td.isIdle {
				td.isIdle[i] = false
			}
		} else {
			td.terminated = true
		}
	}
	return td.terminated
}

// GlobalTermination reports whether termination has been declared.
func (td *TerminationDetector) GlobalTermination() bool {
	td.mu.Lock()
	defer td.mu.Unlock()
	return td.terminated
}
