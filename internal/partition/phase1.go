package partition

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gthost/cusp-gluon/internal/bitset"
	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/gthost/cusp-gluon/internal/transport"
	"github.com/gthost/cusp-gluon/internal/wire"
)

// inspection is the output of assignEdgesPhase1: everything needed to
// allocate and finalise the local CSR graph, independent of edge-data type.
type inspection struct {
	numOwned         uint32
	numNodes         uint32
	numEdges         uint64
	localToGlobal    []ids.GID
	globalToLocal    map[ids.GID]ids.LID
	prefixSumOfEdges []uint64
}

// threadAccum is one goroutine's private accumulation over its chunk of
// the local master range, merged into the host-wide totals after the
// parallel pass. This is the Go analogue of the original's
// substrate::PerThreadStorage<DynamicBitSet> plus galois::GAccumulator:
// thread-local state to avoid contending on a shared bitset word, folded
// together with a plain reduction loop instead of a second framework.
type threadAccum struct {
	incoming     []*bitset.Set // per dest host, sized numGlobalNodes
	edgesPerHost []uint64
	nodesPerHost []uint32
}

// assignEdgesPhase1 implements spec.md §4.1.1 (edge inspection) and
// §4.1.2 (local id assignment): every host scans its own assigned master
// range, learns from its peers which of ITS nodes they in turn own, and
// from that derives a dense local numbering of masters followed by
// ghosts.
func (p *Partition[E]) assignEdgesPhase1(h transport.Host, phase transport.Phase, myRange ids.Range, vertexIDMap *ids.NodeAssignment, pg *offlinegraph.PartialGraph) (inspection, error) {
	numHosts := p.cfg.NumHosts
	self := p.cfg.Host
	myLen := myRange.Len()

	numOutgoingEdges := make([][]uint64, numHosts)
	for i := range numOutgoingEdges {
		numOutgoingEdges[i] = make([]uint64, myLen)
	}
	hasIncomingEdge := make([]*bitset.Set, numHosts)
	for i := range hasIncomingEdge {
		hasIncomingEdge[i] = bitset.New(p.numGlobalNodes)
	}
	numAssignedEdgesPerHost := make([]uint64, numHosts)
	numAssignedNodesPerHost := make([]uint32, numHosts)

	if myLen > 0 {
		numThreads := p.cfg.NumThreads
		chunks := csrDivide(myLen, numThreads)
		accums := make([]threadAccum, len(chunks))

		var g errgroup.Group
		for ci, chunk := range chunks {
			ci, chunk := ci, chunk
			accums[ci] = threadAccum{
				incoming:     make([]*bitset.Set, numHosts),
				edgesPerHost: make([]uint64, numHosts),
				nodesPerHost: make([]uint32, numHosts),
			}
			for i := range accums[ci].incoming {
				accums[ci].incoming[i] = bitset.New(p.numGlobalNodes)
			}
			g.Go(func() error {
				acc := &accums[ci]
				for offset := chunk.lo; offset < chunk.hi; offset++ {
					src := myRange.Lo + ids.GID(offset)
					owner := vertexIDMap.HostOf(src)
					edgeLo := p.reader.EdgeBegin(src)
					edgeHi := p.reader.EdgeBegin(src + 1)
					numEdgesForSrc := edgeHi - edgeLo
					numOutgoingEdges[owner][offset] = 1 + numEdgesForSrc
					acc.nodesPerHost[owner]++
					acc.edgesPerHost[owner] += numEdgesForSrc
					for cur := edgeLo; cur < edgeHi; cur++ {
						acc.incoming[owner].Set(uint64(pg.EdgeDestination(cur)))
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return inspection{}, err
		}
		for _, acc := range accums {
			for i := 0; i < numHosts; i++ {
				hasIncomingEdge[i].BitwiseOr(acc.incoming[i])
				numAssignedEdgesPerHost[i] += acc.edgesPerHost[i]
				numAssignedNodesPerHost[i] += acc.nodesPerHost[i]
			}
		}
	}

	var totalAssigned uint64
	for _, n := range numAssignedEdgesPerHost {
		totalAssigned += n
	}
	if totalAssigned != pg.EdgeEnd()-pg.EdgeBegin() {
		return inspection{}, fmt.Errorf("partition: edge inspection accounted for %d edges, want %d", totalAssigned, pg.EdgeEnd()-pg.EdgeBegin())
	}

	numOwned := numAssignedNodesPerHost[self]

	for x := 0; x < numHosts; x++ {
		if ids.HostID(x) == self {
			continue
		}
		env := wire.Phase1Envelope{
			NumNodesAssigned: numAssignedNodesPerHost[x],
			NumEdgesAssigned: numAssignedEdgesPerHost[x],
			OutgoingCounts:   numOutgoingEdges[x],
			Incoming:         wire.FromBitset(hasIncomingEdge[x]),
		}
		buf, err := wire.Encode(env)
		if err != nil {
			return inspection{}, err
		}
		if err := h.SendTagged(ids.HostID(x), phase, buf); err != nil {
			return inspection{}, fmt.Errorf("partition: phase1 send to host %d: %w", x, err)
		}
	}
	if err := h.Flush(); err != nil {
		return inspection{}, err
	}

	for x := 0; x < numHosts; x++ {
		if ids.HostID(x) == self {
			continue
		}
		msg, err := transport.ReceiveBlocking(h, phase)
		if err != nil {
			return inspection{}, err
		}
		var env wire.Phase1Envelope
		if err := wire.Decode(msg.Payload, &env); err != nil {
			return inspection{}, err
		}
		numOutgoingEdges[msg.From] = env.OutgoingCounts
		hasIncomingEdge[msg.From] = env.Incoming.ToBitset()
		numOwned += env.NumNodesAssigned
	}

	for x := 0; x < numHosts; x++ {
		if ids.HostID(x) == self {
			continue
		}
		hasIncomingEdge[self].BitwiseOr(hasIncomingEdge[x])
	}

	var localToGlobal []ids.GID
	globalToLocal := make(map[ids.GID]ids.LID)
	var prefixSumOfEdges []uint64
	var numEdges uint64
	var numNodes uint32
	src := ids.GID(0)
	for i := 0; i < numHosts; i++ {
		rangeLen := p.cfg.GID2Host[i].Len()
		if uint64(len(numOutgoingEdges[i])) != rangeLen {
			return inspection{}, fmt.Errorf("partition: host %d sent %d entries, want %d", i, len(numOutgoingEdges[i]), rangeLen)
		}
		for j := uint64(0); j < rangeLen; j++ {
			if numOutgoingEdges[i][j] > 0 {
				numEdges += numOutgoingEdges[i][j] - 1
				localToGlobal = append(localToGlobal, src)
				globalToLocal[src] = ids.LID(numNodes)
				numNodes++
				prefixSumOfEdges = append(prefixSumOfEdges, numEdges)
			}
			src++
		}
	}
	if numNodes != numOwned {
		return inspection{}, fmt.Errorf("partition: assigned %d masters, expected %d", numNodes, numOwned)
	}

	for i := uint64(0); i < p.numGlobalNodes; i++ {
		gid := ids.GID(i)
		if !hasIncomingEdge[self].Test(i) {
			continue
		}
		if _, owned := globalToLocal[gid]; owned {
			continue
		}
		localToGlobal = append(localToGlobal, gid)
		globalToLocal[gid] = ids.LID(numNodes)
		numNodes++
		prefixSumOfEdges = append(prefixSumOfEdges, numEdges)
	}

	return inspection{
		numOwned:         numOwned,
		numNodes:         numNodes,
		numEdges:         numEdges,
		localToGlobal:    localToGlobal,
		globalToLocal:    globalToLocal,
		prefixSumOfEdges: prefixSumOfEdges,
	}, nil
}

// resolveMirrors implements spec.md §4.1.3: every host broadcasts its
// sorted master list, and every ghost is matched against each received
// list in turn until its owner is found.
func (p *Partition[E]) resolveMirrors(h transport.Host, phase transport.Phase) error {
	numHosts := p.cfg.NumHosts
	self := p.cfg.Host
	numGhosts := int(p.numNodes - p.numOwned)

	masterList := make([]uint64, p.numOwned)
	for i := range masterList {
		masterList[i] = uint64(p.localToGlobal[i])
	}

	for x := 0; x < numHosts; x++ {
		if ids.HostID(x) == self {
			continue
		}
		buf, err := wire.Encode(wire.MasterListEnvelope{GlobalIDs: masterList})
		if err != nil {
			return err
		}
		if err := h.SendTagged(ids.HostID(x), phase, buf); err != nil {
			return fmt.Errorf("partition: mirror resolution send to host %d: %w", x, err)
		}
	}
	if err := h.Flush(); err != nil {
		return err
	}

	owners := make([]ids.HostID, numGhosts)
	found := make([]bool, numGhosts)
	for x := 0; x < numHosts; x++ {
		if ids.HostID(x) == self {
			continue
		}
		msg, err := transport.ReceiveBlocking(h, phase)
		if err != nil {
			return err
		}
		var env wire.MasterListEnvelope
		if err := wire.Decode(msg.Payload, &env); err != nil {
			return err
		}
		for gi := 0; gi < numGhosts; gi++ {
			if found[gi] {
				continue
			}
			target := uint64(p.localToGlobal[int(p.numOwned)+gi])
			idx := sort.Search(len(env.GlobalIDs), func(i int) bool { return env.GlobalIDs[i] >= target })
			if idx < len(env.GlobalIDs) && env.GlobalIDs[idx] == target {
				owners[gi] = msg.From
				found[gi] = true
			}
		}
	}
	for gi, ok := range found {
		if !ok {
			gid := p.localToGlobal[int(p.numOwned)+gi]
			return fmt.Errorf("partition: ghost %d has no resolved owner among peers", gid)
		}
	}

	p.mirrorNodes = make(map[ids.HostID][]ids.GID)
	for gi := 0; gi < numGhosts; gi++ {
		owner := owners[gi]
		p.mirrorNodes[owner] = append(p.mirrorNodes[owner], p.localToGlobal[int(p.numOwned)+gi])
	}
	return nil
}

// rangeChunk is one goroutine's contiguous slice of offsets within a
// host's assigned master range.
type rangeChunk struct{ lo, hi uint64 }

func csrDivide(n uint64, numThreads int) []rangeChunk {
	if numThreads <= 0 {
		numThreads = 1
	}
	if uint64(numThreads) > n {
		numThreads = int(n)
	}
	if numThreads == 0 {
		return nil
	}
	chunks := make([]rangeChunk, 0, numThreads)
	base := n / uint64(numThreads)
	rem := n % uint64(numThreads)
	var cur uint64
	for t := 0; t < numThreads; t++ {
		size := base
		if uint64(t) < rem {
			size++
		}
		chunks = append(chunks, rangeChunk{lo: cur, hi: cur + size})
		cur += size
	}
	return chunks
}
