// Package stats holds the counters spec.md §8's testable properties
// require to be observable (`conflicts`, `iterations`) plus a top-K
// diagnostic over partition mirror counts. Counters are exposed as
// Prometheus instruments, grounded on the Prometheus usage in
// other_examples/jinterlante1206-AleutianLocal__hld_queries.go, with a
// parallel atomic readback so callers (and tests) can read exact values
// without scraping a registry — spec.md §1's "statistics reporting"
// non-goal excludes the external dump/report surface, not the counters.
package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// LoopStatistics tracks one for_each loop's conflict/iteration/commit
// counts, the concrete form of spec.md §4.2's `LoopStatistics`.
type LoopStatistics struct {
	loopName string

	conflicts  prometheus.Counter
	iterations prometheus.Counter
	commits    prometheus.Counter

	conflictsN  atomic.Uint64
	iterationsN atomic.Uint64
	commitsN    atomic.Uint64
}

// NewLoopStatistics creates a LoopStatistics for loopName. If reg is
// non-nil the three counters are registered into it (use
// prometheus.NewRegistry() per run/test to avoid collisions across
// instances sharing the same loop name); pass nil to skip registration
// while still tracking the atomic counts.
func NewLoopStatistics(reg *prometheus.Registry, loopName string) *LoopStatistics {
	ls := &LoopStatistics{
		loopName: loopName,
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gluon_loop_conflicts_total",
			Help:        "Cancelled (conflicting) iterations in a for_each loop.",
			ConstLabels: prometheus.Labels{"loop": loopName},
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gluon_loop_iterations_total",
			Help:        "Iterations attempted (committed or cancelled) in a for_each loop.",
			ConstLabels: prometheus.Labels{"loop": loopName},
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gluon_loop_commits_total",
			Help:        "Committed iterations in a for_each loop.",
			ConstLabels: prometheus.Labels{"loop": loopName},
		}),
	}
	if reg != nil {
		reg.MustRegister(ls.conflicts, ls.iterations, ls.commits)
	}
	return ls
}

// Conflict records one cancelled iteration.
func (ls *LoopStatistics) Conflict() {
	ls.conflicts.Inc()
	ls.conflictsN.Add(1)
}

// Iteration records one attempted iteration (committed or cancelled).
func (ls *LoopStatistics) Iteration() {
	ls.iterations.Inc()
	ls.iterationsN.Add(1)
}

// Commit records one committed iteration.
func (ls *LoopStatistics) Commit() {
	ls.commits.Inc()
	ls.commitsN.Add(1)
}

// Conflicts, Iterations, and Commits read back the exact current counts.
func (ls *LoopStatistics) Conflicts() uint64  { return ls.conflictsN.Load() }
func (ls *LoopStatistics) Iterations() uint64 { return ls.iterationsN.Load() }
func (ls *LoopStatistics) Commits() uint64    { return ls.commitsN.Load() }

// LoopName returns the label this LoopStatistics was created with.
func (ls *LoopStatistics) LoopName() string { return ls.loopName }
