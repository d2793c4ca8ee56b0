package csrgraph_test

import (
	"testing"

	"github.com/gthost/cusp-gluon/internal/csrgraph"
	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/stretchr/testify/require"
)

// buildPath builds 0->1->2->3 as a void-edge graph.
func buildPath(t *testing.T) *csrgraph.Graph[struct{}] {
	t.Helper()
	g := &csrgraph.Graph[struct{}]{}
	g.AllocateFrom(4, 3)
	g.ConstructNodes()
	g.FixEndEdge(0, 1)
	g.FixEndEdge(1, 2)
	g.FixEndEdge(2, 3)
	g.FixEndEdge(3, 3)
	g.ConstructEdge(0, 1)
	g.ConstructEdge(1, 2)
	g.ConstructEdge(2, 3)
	return g
}

func TestGraphValidate(t *testing.T) {
	g := buildPath(t)
	require.NoError(t, g.Validate())
	require.Equal(t, []ids.LID{1}, g.Neighbors(0))
	require.Empty(t, g.Neighbors(3))
}

func TestGraphTranspose(t *testing.T) {
	g := buildPath(t)
	tr := g.Transpose()
	require.NoError(t, tr.Validate())
	require.Empty(t, tr.Neighbors(0))
	require.Equal(t, []ids.LID{0}, tr.Neighbors(1))
	require.Equal(t, []ids.LID{1}, tr.Neighbors(2))
	require.Equal(t, []ids.LID{2}, tr.Neighbors(3))
}

func TestGraphWeightedEdges(t *testing.T) {
	g := &csrgraph.Graph[float64]{}
	g.AllocateFrom(2, 1)
	g.ConstructNodes()
	g.FixEndEdge(0, 1)
	g.FixEndEdge(1, 1)
	g.ConstructEdge(0, 1, 3.5)
	require.NoError(t, g.Validate())
	require.Equal(t, 3.5, g.Data(0))
}

func TestDetermineThreadRanges(t *testing.T) {
	// one entry per node, cumulative edges through that node inclusive —
	// no leading zero, matching what phase1.go and meta.go actually build.
	prefix := []uint64{1, 2, 3, 10}
	ranges := csrgraph.DetermineThreadRanges(4, prefix, 2)
	require.Len(t, ranges, 2)
	require.Equal(t, ids.LID(0), ranges[0].Begin)
	require.Equal(t, ranges[0].End, ranges[1].Begin)
	require.Equal(t, ids.LID(4), ranges[len(ranges)-1].End)
}

func TestDetermineThreadRangesEmptyGraph(t *testing.T) {
	ranges := csrgraph.DetermineThreadRanges(0, nil, 4)
	require.Len(t, ranges, 1)
}
