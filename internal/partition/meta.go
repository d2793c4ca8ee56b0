package partition

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gthost/cusp-gluon/internal/csrgraph"
	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/gthost/cusp-gluon/internal/transport"
)

// NodeInfo is one entry of a partition meta-file: a local node's global
// id, the local id it was assigned, and the host that owns it. This is
// the Go form of the original's readMetaFile triples (SPEC_FULL.md
// supplemental feature 1).
type NodeInfo struct {
	GlobalID ids.GID
	LocalID  ids.LID
	OwnerID  ids.HostID
}

const metaEntryBytes = 8 + 4 + 4

// WriteMetaFile writes entries (which must already be ordered by
// LocalID ascending, masters before ghosts) to path as a flat binary
// array of (GlobalID uint64, LocalID uint32, OwnerID uint32) triples.
func WriteMetaFile(path string, entries []NodeInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("partition: create meta-file %q: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, metaEntryBytes*len(entries))
	for i, e := range entries {
		off := i * metaEntryBytes
		binary.LittleEndian.PutUint64(buf[off:], uint64(e.GlobalID))
		binary.LittleEndian.PutUint32(buf[off+8:], uint32(e.LocalID))
		binary.LittleEndian.PutUint32(buf[off+12:], uint32(e.OwnerID))
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("partition: writing meta-file %q: %w", path, err)
	}
	return nil
}

// LoadMetaFile reads a partition meta-file previously written by
// WriteMetaFile (typically from the entries BuildMetaFile returns).
func LoadMetaFile(path string) ([]NodeInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("partition: open meta-file %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("partition: reading meta-file %q: %w", path, err)
	}
	if len(data)%metaEntryBytes != 0 {
		return nil, fmt.Errorf("partition: meta-file %q has %d bytes, not a multiple of %d", path, len(data), metaEntryBytes)
	}
	n := len(data) / metaEntryBytes
	entries := make([]NodeInfo, n)
	for i := 0; i < n; i++ {
		off := i * metaEntryBytes
		entries[i] = NodeInfo{
			GlobalID: ids.GID(binary.LittleEndian.Uint64(data[off:])),
			LocalID:  ids.LID(binary.LittleEndian.Uint32(data[off+8:])),
			OwnerID:  ids.HostID(binary.LittleEndian.Uint32(data[off+12:])),
		}
	}
	return entries, nil
}

// BuildMetaFile derives a meta-file's entries from an already-built
// Partition, letting a later run of the same job skip phase 1 and mirror
// resolution entirely via NewFromMetaFile.
func BuildMetaFile[E any](p *Partition[E]) []NodeInfo {
	entries := make([]NodeInfo, p.numNodes)
	for lid := uint32(0); lid < p.numNodes; lid++ {
		gid := p.localToGlobal[lid]
		owner := p.cfg.Host
		if lid >= p.numOwned {
			owner = p.HostOf(gid)
		}
		entries[lid] = NodeInfo{GlobalID: gid, LocalID: ids.LID(lid), OwnerID: owner}
	}
	return entries
}

// NewFromMetaFile builds a Partition the way Build does, but skips the
// phase-1 edge-inspection and mirror-owner-resolution exchanges by
// reusing a previously computed meta-file's local<->global<->owner
// assignment (SPEC_FULL.md supplemental feature 1). It still performs
// phase-2 edge distribution and finalisation, since edge payloads are
// not carried by the meta-file.
func NewFromMetaFile[E any](h transport.Host, cfg Config, phase transport.Phase, metaPath string, decodeEdgeData func(uint64) E) (*Partition[E], transport.Phase, error) {
	logger := cfg.logger()
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 1
	}
	if len(cfg.GID2Host) != cfg.NumHosts {
		return nil, phase, fmt.Errorf("partition: GID2Host has %d entries, want %d", len(cfg.GID2Host), cfg.NumHosts)
	}

	entries, err := LoadMetaFile(metaPath)
	if err != nil {
		return nil, phase, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LocalID < entries[j].LocalID })

	reader, err := offlinegraph.Open(cfg.GraphFile)
	if err != nil {
		return nil, phase, err
	}
	defer reader.Close()

	p := &Partition[E]{
		cfg:         cfg,
		log:         logger,
		isBipartite: cfg.Bipartite,
		mirrorNodes: make(map[ids.HostID][]ids.GID),
		reader:      reader,
	}
	p.numGlobalNodes = reader.Size()
	p.numGlobalEdges = reader.SizeEdges()

	p.localToGlobal = make([]ids.GID, len(entries))
	p.globalToLocal = make(map[ids.GID]ids.LID, len(entries))
	prefixSumOfEdges := make([]uint64, len(entries))
	var numEdges uint64
	var numOwned uint32
	for i, e := range entries {
		if uint32(e.LocalID) != uint32(i) {
			return nil, phase, fmt.Errorf("partition: meta-file %q not densely ordered by LocalID at %d", metaPath, i)
		}
		p.localToGlobal[i] = e.GlobalID
		p.globalToLocal[e.GlobalID] = e.LocalID
		if e.OwnerID == cfg.Host {
			numOwned++
			numEdges += reader.EdgeBegin(e.GlobalID+1) - reader.EdgeBegin(e.GlobalID)
		} else {
			p.mirrorNodes[e.OwnerID] = append(p.mirrorNodes[e.OwnerID], e.GlobalID)
		}
		prefixSumOfEdges[i] = numEdges
	}
	p.numOwned = numOwned
	p.numNodes = uint32(len(entries))
	p.numEdges = numEdges

	p.graph = &csrgraph.Graph[E]{}
	p.graph.AllocateFrom(p.numNodes, p.numEdges)
	p.graph.ConstructNodes()
	for lid := 0; lid < len(prefixSumOfEdges); lid++ {
		p.graph.FixEndEdge(ids.LID(lid), prefixSumOfEdges[lid])
	}

	myRange := cfg.GID2Host[cfg.Host]
	vertexIDMap, err := ids.LoadNodeAssignment(cfg.VertexIDMapFile, myRange)
	if err != nil {
		return nil, phase, err
	}
	edgeBegin := reader.EdgeBegin(myRange.Lo)
	edgeEnd := reader.EdgeBegin(myRange.Hi)
	pg, err := reader.LoadPartialGraph(edgeBegin, edgeEnd)
	if err != nil {
		return nil, phase, err
	}

	if err := p.loadEdges(h, phase, myRange, vertexIDMap, pg, decodeEdgeData); err != nil {
		return nil, phase, err
	}
	phase++

	if err := transport.Barrier(h, phase); err != nil {
		return nil, phase, err
	}
	phase++

	if cfg.Transpose && p.numNodes > 0 {
		p.graph = p.graph.Transpose()
		p.transposed = true
	} else {
		p.threadRanges = csrgraph.DetermineThreadRanges(p.numNodes, prefixSumOfEdges, cfg.NumThreads)
	}
	p.determineMasterRange()
	p.determineWithEdgesRanges()

	logger.Printf("loaded from meta-file %q: resident nodes %d, resident edges %d", metaPath, p.numNodes, p.numEdges)
	return p, phase, nil
}
