// Package csrgraph is a minimal local compressed-sparse-row graph builder:
// the collaborator spec.md §6 calls allocateFrom/constructNodes/
// constructEdge/edge_begin/edge_end/fixEndEdge/transpose and treats as an
// opaque external dependency (spec.md §1 non-goal). This package gives
// that interface one concrete, generic implementation so the partitioner
// compiles and is testable end to end, shaped after the Row/Col CSR
// struct in the retrieval pack's ConductorOne-baton-sdk SCC code (same
// prefix-sum-plus-flat-destination-array layout, generalized here to
// carry optional per-edge data).
//
// spec.md §9's "compile-time branching on edge-data presence" note is
// served by a Go type parameter instead of two hand-duplicated code
// paths: Graph[struct{}] is the void case, Graph[W] for a concrete W is
// the weighted case, and both share one implementation.
package csrgraph

import (
	"fmt"

	"github.com/gthost/cusp-gluon/internal/ids"
)

// Graph is a local CSR graph over LIDs. Edge data type E is struct{} for
// void (unweighted) edges.
//
// Invariants (spec.md §3 invariant 6):
//   - len(rowStart) == numNodes+1
//   - rowStart is non-decreasing
//   - rowStart[numNodes] == numEdges
type Graph[E any] struct {
	numNodes uint32
	numEdges uint64
	rowStart []uint64
	dst      []ids.LID
	data     []E
}

// AllocateFrom reserves storage for numNodes nodes and numEdges edges.
// It must be called before ConstructNodes.
func (g *Graph[E]) AllocateFrom(numNodes uint32, numEdges uint64) {
	g.numNodes = numNodes
	g.numEdges = numEdges
	g.dst = make([]ids.LID, numEdges)
	g.data = make([]E, numEdges)
}

// ConstructNodes allocates the prefix-sum array. Each entry is filled in
// later by FixEndEdge.
func (g *Graph[E]) ConstructNodes() {
	g.rowStart = make([]uint64, g.numNodes+1)
}

// FixEndEdge records that node lid's outgoing edges end at prefix (i.e.
// rowStart[lid+1] = prefix), per spec.md §4.1.5's parallel do_all over
// prefixSumOfEdges.
func (g *Graph[E]) FixEndEdge(lid ids.LID, prefix uint64) {
	g.rowStart[lid+1] = prefix
}

// ConstructEdge writes one edge into slot cur, destined for ldst, with
// optional edge data (zero or one value; zero for void graphs).
func (g *Graph[E]) ConstructEdge(cur uint64, ldst ids.LID, data ...E) {
	g.dst[cur] = ldst
	if len(data) > 0 {
		g.data[cur] = data[0]
	}
}

// EdgeBegin returns the first edge slot belonging to lid.
func (g *Graph[E]) EdgeBegin(lid ids.LID) uint64 { return g.rowStart[lid] }

// EdgeEnd returns one past the last edge slot belonging to lid.
func (g *Graph[E]) EdgeEnd(lid ids.LID) uint64 { return g.rowStart[lid+1] }

// NumNodes returns the number of local nodes (masters + ghosts).
func (g *Graph[E]) NumNodes() uint32 { return g.numNodes }

// NumEdges returns the number of local edges.
func (g *Graph[E]) NumEdges() uint64 { return g.numEdges }

// Dst returns the destination LID stored at edge slot cur.
func (g *Graph[E]) Dst(cur uint64) ids.LID { return g.dst[cur] }

// Data returns the edge data stored at edge slot cur.
func (g *Graph[E]) Data(cur uint64) E { return g.data[cur] }

// Neighbors returns the destination LIDs of lid's outgoing edges.
func (g *Graph[E]) Neighbors(lid ids.LID) []ids.LID {
	return g.dst[g.EdgeBegin(lid):g.EdgeEnd(lid)]
}

// Validate checks the CSR invariants spec.md §3 invariant 6 requires.
func (g *Graph[E]) Validate() error {
	if uint64(len(g.rowStart)) != uint64(g.numNodes)+1 {
		return fmt.Errorf("csrgraph: rowStart length %d, want %d", len(g.rowStart), g.numNodes+1)
	}
	for i := 1; i < len(g.rowStart); i++ {
		if g.rowStart[i] < g.rowStart[i-1] {
			return fmt.Errorf("csrgraph: rowStart not non-decreasing at %d: %d < %d", i, g.rowStart[i], g.rowStart[i-1])
		}
	}
	if g.numNodes > 0 && g.rowStart[g.numNodes] != g.numEdges {
		return fmt.Errorf("csrgraph: rowStart[numNodes]=%d, want numEdges=%d", g.rowStart[g.numNodes], g.numEdges)
	}
	return nil
}

// Transpose returns a new Graph with every edge reversed: an edge lsrc->ldst
// in g becomes ldst->lsrc in the result. Edge data is carried along with
// its reversed edge. spec.md §4.1.5 calls for this when the caller
// requests a transposed local graph.
func (g *Graph[E]) Transpose() *Graph[E] {
	out := &Graph[E]{}
	out.AllocateFrom(g.numNodes, g.numEdges)
	out.ConstructNodes()

	counts := make([]uint64, g.numNodes)
	for lsrc := ids.LID(0); lsrc < ids.LID(g.numNodes); lsrc++ {
		for cur := g.EdgeBegin(lsrc); cur < g.EdgeEnd(lsrc); cur++ {
			counts[g.dst[cur]]++
		}
	}
	prefix := uint64(0)
	for lid := ids.LID(0); lid < ids.LID(g.numNodes); lid++ {
		prefix += counts[lid]
		out.FixEndEdge(lid, prefix)
	}

	cursor := make([]uint64, g.numNodes)
	for lid := ids.LID(0); lid < ids.LID(g.numNodes); lid++ {
		if lid == 0 {
			cursor[lid] = 0
		} else {
			cursor[lid] = out.EdgeBegin(lid)
		}
	}

	for lsrc := ids.LID(0); lsrc < ids.LID(g.numNodes); lsrc++ {
		for cur := g.EdgeBegin(lsrc); cur < g.EdgeEnd(lsrc); cur++ {
			ldst := g.dst[cur]
			slot := cursor[ldst]
			cursor[ldst]++
			out.ConstructEdge(slot, lsrc, g.data[cur])
		}
	}
	return out
}

// ThreadRange is a contiguous [Begin, End) range of LIDs assigned to one
// worker thread for a balanced parallel pass over the graph.
type ThreadRange struct {
	Begin, End ids.LID
}

// DetermineThreadRanges splits [0, numNodes) into numThreads contiguous
// ranges balanced by edge count using the prefix sum, the CPU-bound
// equivalent of the original's determine_thread_ranges (spec.md §4.1.5).
//
// prefixSum has one entry per node, prefixSum[i] holding the cumulative
// edge count through node i inclusive — the same rowStart[i+1] convention
// FixEndEdge and partition's prefixSumOfEdges use, with no leading zero
// entry.
func DetermineThreadRanges(numNodes uint32, prefixSum []uint64, numThreads int) []ThreadRange {
	if numThreads <= 0 {
		numThreads = 1
	}
	if numNodes == 0 {
		return []ThreadRange{{0, 0}}
	}
	edgesBefore := func(lid ids.LID) uint64 {
		if lid == 0 {
			return 0
		}
		return prefixSum[lid-1]
	}
	totalEdges := prefixSum[numNodes-1]
	ranges := make([]ThreadRange, 0, numThreads)
	var start ids.LID
	for t := 0; t < numThreads; t++ {
		targetEdges := totalEdges * uint64(t+1) / uint64(numThreads)
		end := start
		for end < ids.LID(numNodes) && edgesBefore(end) < targetEdges {
			end++
		}
		if t == numThreads-1 {
			end = ids.LID(numNodes)
		}
		ranges = append(ranges, ThreadRange{Begin: start, End: end})
		start = end
	}
	return ranges
}
