package partition

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/gthost/cusp-gluon/internal/transport"
	"github.com/gthost/cusp-gluon/internal/wire"
)

// loadEdges implements spec.md §4.1.4: every host streams its own
// assigned master range's edges, constructing them directly into the
// local CSR graph when it owns the source node, and buffering them for
// the owning host otherwise. Edges are batched per source node, and
// buffers are flushed once they pass cfg.SendBufferSize, matching the
// original's partition_edge_send_buffer_size knob. The scan itself is
// fanned out over cfg.NumThreads goroutines the same way
// assignEdgesPhase1 fans out edge inspection: each goroutine owns a
// disjoint chunk of myRange, so its writes into the shared cursor slice
// never collide with another goroutine's, and it flushes its own
// per-host batches directly since transport.Host.SendTagged dials or
// enqueues independently per call.
func (p *Partition[E]) loadEdges(h transport.Host, phase transport.Phase, myRange ids.Range, vertexIDMap *ids.NodeAssignment, pg *offlinegraph.PartialGraph, decodeEdgeData func(uint64) E) error {
	numHosts := p.cfg.NumHosts
	self := p.cfg.Host

	cursor := make([]uint64, p.numNodes)
	for lid := uint32(0); lid < p.numNodes; lid++ {
		cursor[lid] = p.graph.EdgeBegin(ids.LID(lid))
	}

	bufferSize := p.cfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = 1 << 20
	}

	construct := func(srcLID, dstLID ids.LID, edgeData uint64) {
		slot := cursor[srcLID]
		cursor[srcLID]++
		p.graph.ConstructEdge(slot, dstLID, decodeEdgeData(edgeData))
	}

	chunks := csrDivide(myRange.Len(), p.cfg.NumThreads)
	localEdgesPerChunk := make([]uint64, len(chunks))

	var g errgroup.Group
	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			perHostBatches := make([][]wire.EdgeBatchEnvelope, numHosts)
			perHostBytes := make([]int, numHosts)

			flush := func(host int) error {
				if len(perHostBatches[host]) == 0 {
					return nil
				}
				buf, err := wire.Encode(perHostBatches[host])
				if err != nil {
					return err
				}
				if err := h.SendTagged(ids.HostID(host), phase, buf); err != nil {
					return fmt.Errorf("partition: edge distribution send to host %d: %w", host, err)
				}
				perHostBatches[host] = nil
				perHostBytes[host] = 0
				return nil
			}

			var numLocalEdges uint64
			for offset := chunk.lo; offset < chunk.hi; offset++ {
				src := myRange.Lo + ids.GID(offset)
				edgeLo := p.reader.EdgeBegin(src)
				edgeHi := p.reader.EdgeBegin(src + 1)
				if edgeLo == edgeHi {
					continue
				}
				owner := vertexIDMap.HostOf(src)

				if owner == self {
					srcLID := p.G2L(src)
					for cur := edgeLo; cur < edgeHi; cur++ {
						dstLID := p.G2L(pg.EdgeDestination(cur))
						var data uint64
						if p.reader.HasEdgeData() {
							data = pg.EdgeData(cur)
						}
						construct(srcLID, dstLID, data)
					}
					numLocalEdges += edgeHi - edgeLo
					continue
				}

				dsts := make([]uint64, 0, edgeHi-edgeLo)
				var data []uint64
				if p.reader.HasEdgeData() {
					data = make([]uint64, 0, edgeHi-edgeLo)
				}
				for cur := edgeLo; cur < edgeHi; cur++ {
					dsts = append(dsts, uint64(pg.EdgeDestination(cur)))
					if p.reader.HasEdgeData() {
						data = append(data, pg.EdgeData(cur))
					}
				}
				perHostBatches[owner] = append(perHostBatches[owner], wire.EdgeBatchEnvelope{Src: uint64(src), Dsts: dsts, Data: data})
				perHostBytes[owner] += 16 * len(dsts)
				if perHostBytes[owner] >= bufferSize {
					if err := flush(int(owner)); err != nil {
						return err
					}
				}
			}

			for host := 0; host < numHosts; host++ {
				if host == int(self) {
					continue
				}
				if err := flush(host); err != nil {
					return err
				}
			}
			localEdgesPerChunk[ci] = numLocalEdges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := h.Flush(); err != nil {
		return err
	}

	var numLocalEdges uint64
	for _, n := range localEdgesPerChunk {
		numLocalEdges += n
	}
	numToReceive := p.numEdges - numLocalEdges
	var received uint64
	for received < numToReceive {
		msg, err := transport.ReceiveBlocking(h, phase)
		if err != nil {
			return err
		}
		var batches []wire.EdgeBatchEnvelope
		if err := wire.Decode(msg.Payload, &batches); err != nil {
			return err
		}
		for _, b := range batches {
			srcLID := p.G2L(ids.GID(b.Src))
			if want := p.graph.EdgeEnd(srcLID) - p.graph.EdgeBegin(srcLID); uint64(len(b.Dsts)) != want {
				return fmt.Errorf("partition: batch for src %d carries %d edges, want %d", b.Src, len(b.Dsts), want)
			}
			for i, d := range b.Dsts {
				dstLID := p.G2L(ids.GID(d))
				var edgeData uint64
				if len(b.Data) > 0 {
					edgeData = b.Data[i]
				}
				construct(srcLID, dstLID, edgeData)
				received++
			}
		}
	}
	if received != numToReceive {
		return fmt.Errorf("partition: received %d remote edges, want %d", received, numToReceive)
	}
	return nil
}
