package offlinegraph_test

import (
	"path/filepath"
	"testing"

	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/stretchr/testify/require"
)

func TestReadPathGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
		{Src: 1, Dst: 2},
		{Src: 2, Dst: 3},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(path, 4, edges, false))

	r, err := offlinegraph.Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint64(4), r.Size())
	require.Equal(t, uint64(3), r.SizeEdges())
	require.False(t, r.HasEdgeData())

	begin := r.EdgeBegin(0)
	end := r.EdgeBegin(4)
	require.Equal(t, uint64(0), begin)
	require.Equal(t, uint64(3), end)

	pg, err := r.LoadPartialGraph(begin, end)
	require.NoError(t, err)
	require.Equal(t, ids.GID(1), pg.EdgeDestination(0))
	require.Equal(t, ids.GID(2), pg.EdgeDestination(1))
	require.Equal(t, ids.GID(3), pg.EdgeDestination(2))
}

func TestReadWeightedGraphPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1, Data: 10},
		{Src: 0, Dst: 2, Data: 20},
		{Src: 1, Dst: 2, Data: 30},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(path, 3, edges, true))

	r, err := offlinegraph.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.HasEdgeData())

	// partial load covering only node 1's edges
	begin := r.EdgeBegin(1)
	end := r.EdgeBegin(2)
	pg, err := r.LoadPartialGraph(begin, end)
	require.NoError(t, err)
	require.Equal(t, ids.GID(2), pg.EdgeDestination(begin))
	require.Equal(t, uint64(30), pg.EdgeData(begin))
}

func TestIsolatedNodeZeroOutgoingEdges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(path, 6, edges, false))

	r, err := offlinegraph.Open(path)
	require.NoError(t, err)
	defer r.Close()

	// node 5 is isolated: begin == end == total edge count.
	begin := r.EdgeBegin(5)
	end := r.EdgeBegin(6)
	require.Equal(t, begin, end)
}
