package offlinegraph

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gthost/cusp-gluon/internal/ids"
)

// Reader is a random-access-at-open handle onto an offlinegraph file: the
// header and the node->edge-offset index are loaded eagerly (they are
// small, O(numNodes)); the destination and edge-data arrays are read only
// as requested via LoadPartialGraph, matching spec.md §4.1.1's "each host
// reads its assigned master range as a partial load (streamed, not
// random-accessed after)".
type Reader struct {
	f           *os.File
	hasEdgeData bool
	numNodes    uint64
	numEdges    uint64
	outIndices  []uint64 // outIndices[i] = EdgeBegin(i+1); outIndices has len numNodes
	dstOffset   int64
	dataOffset  int64
}

// Open opens path and loads its header and index.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("offlinegraph: unable to open %q: %w", path, err)
	}
	h, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	idxBuf := make([]byte, 8*h.NumNodes)
	if h.NumNodes > 0 {
		if _, err := io.ReadFull(f, idxBuf); err != nil {
			f.Close()
			return nil, fmt.Errorf("offlinegraph: reading index from %q: %w", path, err)
		}
	}
	outIndices := make([]uint64, h.NumNodes)
	for i := range outIndices {
		outIndices[i] = binary.LittleEndian.Uint64(idxBuf[i*8:])
	}

	dstOffset := int64(headerBytes) + int64(8*h.NumNodes)
	dataOffset := dstOffset + int64(8*h.NumEdges)

	return &Reader{
		f:           f,
		hasEdgeData: h.HasEdgeData != 0,
		numNodes:    h.NumNodes,
		numEdges:    h.NumEdges,
		outIndices:  outIndices,
		dstOffset:   dstOffset,
		dataOffset:  dataOffset,
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.f.Close() }

// Size returns the total number of global nodes.
func (r *Reader) Size() uint64 { return r.numNodes }

// SizeEdges returns the total number of global edges.
func (r *Reader) SizeEdges() uint64 { return r.numEdges }

// HasEdgeData reports whether this graph carries per-edge data.
func (r *Reader) HasEdgeData() bool { return r.hasEdgeData }

// EdgeBegin returns the global edge index of gid's first outgoing edge.
// Called with gid == Size() it returns SizeEdges(), letting one function
// serve as both the begin of a node's range and the exclusive end of the
// range before it (the same double duty the original OfflineGraph's
// edge_begin has, per spec.md §4.1.1).
func (r *Reader) EdgeBegin(gid ids.GID) uint64 {
	if gid == 0 {
		return 0
	}
	return r.outIndices[gid-1]
}

// PartialGraph is the in-memory slice of a graph's edges loaded for one
// host's assigned master range, with sequential access to destinations
// and optional edge data.
type PartialGraph struct {
	edgeBegin uint64
	edgeEnd   uint64
	dst       []ids.GID
	data      []uint64
	bytesRead int64
}

// EdgeBegin/EdgeEnd return the global edge-index bounds this partial load
// covers.
func (p *PartialGraph) EdgeBegin() uint64 { return p.edgeBegin }
func (p *PartialGraph) EdgeEnd() uint64   { return p.edgeEnd }

// EdgeDestination returns the global destination id of edge global index
// idx, which must fall in [EdgeBegin(), EdgeEnd()).
func (p *PartialGraph) EdgeDestination(idx uint64) ids.GID {
	return p.dst[idx-p.edgeBegin]
}

// EdgeData returns the edge data of edge global index idx. Valid only
// when the source Reader reported HasEdgeData().
func (p *PartialGraph) EdgeData(idx uint64) uint64 {
	return p.data[idx-p.edgeBegin]
}

// BytesRead reports how many bytes LoadPartialGraph read from disk.
func (p *PartialGraph) BytesRead() int64 { return p.bytesRead }

// LoadPartialGraph streams the destination (and, if present, edge-data)
// arrays for the global edge range [edgeBegin, edgeEnd) into memory. It
// performs one seek and one sequential read per array, matching
// spec.md §4.1.1's "partial load (streamed, not random-accessed after)".
func (r *Reader) LoadPartialGraph(edgeBegin, edgeEnd uint64) (*PartialGraph, error) {
	n := edgeEnd - edgeBegin
	p := &PartialGraph{edgeBegin: edgeBegin, edgeEnd: edgeEnd}
	if n == 0 {
		return p, nil
	}

	dstBuf := make([]byte, 8*n)
	if _, err := r.f.Seek(r.dstOffset+int64(edgeBegin)*8, io.SeekStart); err != nil {
		return nil, fmt.Errorf("offlinegraph: seek to destinations: %w", err)
	}
	if _, err := io.ReadFull(r.f, dstBuf); err != nil {
		return nil, fmt.Errorf("offlinegraph: reading %d destinations: %w", n, err)
	}
	p.dst = make([]ids.GID, n)
	for i := range p.dst {
		p.dst[i] = ids.GID(binary.LittleEndian.Uint64(dstBuf[i*8:]))
	}
	p.bytesRead += int64(len(dstBuf))

	if r.hasEdgeData {
		dataBuf := make([]byte, 8*n)
		if _, err := r.f.Seek(r.dataOffset+int64(edgeBegin)*8, io.SeekStart); err != nil {
			return nil, fmt.Errorf("offlinegraph: seek to edge data: %w", err)
		}
		if _, err := io.ReadFull(r.f, dataBuf); err != nil {
			return nil, fmt.Errorf("offlinegraph: reading %d edge-data entries: %w", n, err)
		}
		p.data = make([]uint64, n)
		for i := range p.data {
			p.data[i] = binary.LittleEndian.Uint64(dataBuf[i*8:])
		}
		p.bytesRead += int64(len(dataBuf))
	}
	return p, nil
}
