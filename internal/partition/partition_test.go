package partition_test

import (
	"path/filepath"
	"testing"

	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/gthost/cusp-gluon/internal/partition"
	"github.com/gthost/cusp-gluon/internal/transport"
	"github.com/stretchr/testify/require"
)

func voidDecode(uint64) struct{} { return struct{}{} }

// buildAll runs partition.Build concurrently for every host over net and
// returns each host's Partition, failing the test on any error.
func buildAll(t *testing.T, net *transport.Network, cfg partition.Config) []*partition.Partition[struct{}] {
	t.Helper()
	numHosts := cfg.NumHosts
	parts := make([]*partition.Partition[struct{}], numHosts)
	errs := make([]error, numHosts)
	done := make(chan int, numHosts)
	for i := 0; i < numHosts; i++ {
		i := i
		go func() {
			hc := cfg
			hc.Host = ids.HostID(i)
			p, _, err := partition.Build[struct{}](net.Host(ids.HostID(i)), hc, transport.Phase(0), voidDecode)
			parts[i] = p
			errs[i] = err
			done <- i
		}()
	}
	for i := 0; i < numHosts; i++ {
		<-done
	}
	for i, err := range errs {
		require.NoError(t, err, "host %d", i)
	}
	return parts
}

func TestTwoHostPathGraph(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "g.bin")
	mapPath := filepath.Join(dir, "vmap.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
		{Src: 1, Dst: 2},
		{Src: 2, Dst: 3},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(graphPath, 4, edges, false))
	require.NoError(t, ids.WriteNodeAssignment(mapPath, []int32{0, 0, 1, 1}))

	net := transport.NewNetwork(2)
	cfg := partition.Config{
		GraphFile:       graphPath,
		VertexIDMapFile: mapPath,
		NumHosts:        2,
		GID2Host:        []ids.Range{{Lo: 0, Hi: 2}, {Lo: 2, Hi: 4}},
		NumThreads:      2,
	}
	parts := buildAll(t, net, cfg)

	h0, h1 := parts[0], parts[1]
	require.EqualValues(t, 2, h0.NumOwned())
	require.EqualValues(t, 1, h0.NumGhosts())
	require.EqualValues(t, 2, h1.NumOwned())
	require.EqualValues(t, 0, h1.NumGhosts())

	require.True(t, h0.IsOwned(0))
	require.True(t, h0.IsOwned(1))
	require.False(t, h0.IsOwned(2))
	require.True(t, h0.IsLocal(2))
	require.Equal(t, []ids.GID{2}, h0.MirrorNodes(1))
	require.Equal(t, ids.HostID(1), h0.HostOf(2))

	require.False(t, h1.IsLocal(0))
	require.False(t, h1.IsLocal(1))
	require.True(t, h1.IsOwned(2))
	require.True(t, h1.IsOwned(3))

	var total uint64
	for _, p := range parts {
		total += p.NumEdges()
	}
	require.EqualValues(t, 3, total)
}

func TestSingleHostTriangle(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "g.bin")
	mapPath := filepath.Join(dir, "vmap.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
		{Src: 1, Dst: 2},
		{Src: 2, Dst: 0},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(graphPath, 3, edges, false))
	require.NoError(t, ids.WriteNodeAssignment(mapPath, []int32{0, 0, 0}))

	net := transport.NewNetwork(1)
	cfg := partition.Config{
		GraphFile:       graphPath,
		VertexIDMapFile: mapPath,
		NumHosts:        1,
		GID2Host:        []ids.Range{{Lo: 0, Hi: 3}},
		NumThreads:      1,
	}
	parts := buildAll(t, net, cfg)
	p := parts[0]

	require.EqualValues(t, 3, p.NumOwned())
	require.EqualValues(t, 0, p.NumGhosts())
	require.EqualValues(t, 3, p.NumEdges())
}

func TestIsolatedOwnedNodeSentinel(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "g.bin")
	mapPath := filepath.Join(dir, "vmap.bin")

	edges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(graphPath, 6, edges, false))
	require.NoError(t, ids.WriteNodeAssignment(mapPath, []int32{0, 0, 0, 0, 0, 0}))

	net := transport.NewNetwork(1)
	cfg := partition.Config{
		GraphFile:       graphPath,
		VertexIDMapFile: mapPath,
		NumHosts:        1,
		GID2Host:        []ids.Range{{Lo: 0, Hi: 6}},
		NumThreads:      3,
	}
	parts := buildAll(t, net, cfg)
	p := parts[0]

	require.EqualValues(t, 6, p.NumOwned())
	require.True(t, p.IsLocal(5))
	lid := p.G2L(5)
	require.Greater(t, uint32(lid), uint32(0))
	require.Equal(t, p.Graph().EdgeBegin(lid), p.Graph().EdgeEnd(lid))
	prevLID := lid - 1
	require.Equal(t, p.Graph().EdgeEnd(prevLID), p.Graph().EdgeBegin(lid))
}

func TestVoidVsWeightedSameAdjacency(t *testing.T) {
	dir := t.TempDir()
	voidPath := filepath.Join(dir, "void.bin")
	weightedPath := filepath.Join(dir, "weighted.bin")
	mapPath := filepath.Join(dir, "vmap.bin")

	voidEdges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1},
		{Src: 0, Dst: 2},
		{Src: 1, Dst: 2},
	}
	weightedEdges := []offlinegraph.EdgeListEntry{
		{Src: 0, Dst: 1, Data: 10},
		{Src: 0, Dst: 2, Data: 20},
		{Src: 1, Dst: 2, Data: 30},
	}
	require.NoError(t, offlinegraph.WriteEdgeList(voidPath, 3, voidEdges, false))
	require.NoError(t, offlinegraph.WriteEdgeList(weightedPath, 3, weightedEdges, true))
	require.NoError(t, ids.WriteNodeAssignment(mapPath, []int32{0, 0, 0}))

	cfg := partition.Config{
		VertexIDMapFile: mapPath,
		NumHosts:        1,
		GID2Host:        []ids.Range{{Lo: 0, Hi: 3}},
		NumThreads:      1,
	}

	netVoid := transport.NewNetwork(1)
	cfgVoid := cfg
	cfgVoid.GraphFile = voidPath
	pv, _, err := partition.Build[struct{}](netVoid.Host(0), cfgVoid, transport.Phase(0), voidDecode)
	require.NoError(t, err)

	netWeighted := transport.NewNetwork(1)
	cfgWeighted := cfg
	cfgWeighted.GraphFile = weightedPath
	pw, _, err := partition.Build[uint64](netWeighted.Host(0), cfgWeighted, transport.Phase(0), func(v uint64) uint64 { return v })
	require.NoError(t, err)

	require.Equal(t, pv.NumEdges(), pw.NumEdges())
	for lid := ids.LID(0); lid < ids.LID(pv.NumOwned()); lid++ {
		require.Equal(t, pv.Graph().Neighbors(lid), pw.Graph().Neighbors(lid))
	}
	require.EqualValues(t, 30, pw.Graph().Data(pw.Graph().EdgeEnd(pw.G2L(1))-1))
}
