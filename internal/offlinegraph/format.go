// Package offlinegraph is the read-only, random-access-at-open /
// streamed-after-that reader over the shared input graph file that
// spec.md §1 and §6 describe as an external collaborator: "a read-only
// iterator over (src, dst, edge_data?)". The binary layout below is this
// module's own minimal invention (the spec deliberately leaves the file
// format out of scope), shaped like a compressed-sparse-row-on-disk
// format: a header, a prefix-sum index, a flat destination array, and an
// optional flat edge-data array — structurally the same information the
// in-memory csrgraph.Graph holds, just serialized.
//
// File I/O here follows the teacher's style in sdfs/sdfs.go: os.Open /
// explicit Seek+Read, errors wrapped and returned rather than panicked.
package offlinegraph

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gthost/cusp-gluon/internal/ids"
)

const magicVersion uint64 = 1

// header is the fixed-size preamble: magicVersion, HasEdgeData (0 or 1),
// NumNodes, NumEdges.
type header struct {
	Version     uint64
	HasEdgeData uint64
	NumNodes    uint64
	NumEdges    uint64
}

const headerBytes = 8 * 4

func writeHeader(w io.Writer, h header) error {
	buf := make([]byte, headerBytes)
	binary.LittleEndian.PutUint64(buf[0:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.HasEdgeData)
	binary.LittleEndian.PutUint64(buf[16:24], h.NumNodes)
	binary.LittleEndian.PutUint64(buf[24:32], h.NumEdges)
	_, err := w.Write(buf)
	return err
}

func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, headerBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, fmt.Errorf("offlinegraph: reading header: %w", err)
	}
	h := header{
		Version:     binary.LittleEndian.Uint64(buf[0:8]),
		HasEdgeData: binary.LittleEndian.Uint64(buf[8:16]),
		NumNodes:    binary.LittleEndian.Uint64(buf[16:24]),
		NumEdges:    binary.LittleEndian.Uint64(buf[24:32]),
	}
	if h.Version != magicVersion {
		return header{}, fmt.Errorf("offlinegraph: unsupported version %d", h.Version)
	}
	return h, nil
}

// EdgeListEntry is one (src, dst[, data]) triple used to build a fixture
// file with WriteEdgeList.
type EdgeListEntry struct {
	Src  ids.GID
	Dst  ids.GID
	Data uint64
}

// WriteEdgeList writes numNodes nodes and the given edges (already sorted
// by Src, ascending) as an offlinegraph file at path. hasEdgeData controls
// whether the Data field is persisted.
func WriteEdgeList(path string, numNodes uint64, edges []EdgeListEntry, hasEdgeData bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("offlinegraph: create %q: %w", path, err)
	}
	defer f.Close()

	hasData := uint64(0)
	if hasEdgeData {
		hasData = 1
	}
	h := header{Version: magicVersion, HasEdgeData: hasData, NumNodes: numNodes, NumEdges: uint64(len(edges))}
	if err := writeHeader(f, h); err != nil {
		return fmt.Errorf("offlinegraph: writing header: %w", err)
	}

	// prefix sum index: outIndices[i] = number of edges with Src <= i
	outIndices := make([]uint64, numNodes)
	var cur uint64
	ei := 0
	for i := uint64(0); i < numNodes; i++ {
		for ei < len(edges) && uint64(edges[ei].Src) == i {
			cur++
			ei++
		}
		outIndices[i] = cur
	}
	idxBuf := make([]byte, 8*numNodes)
	for i, v := range outIndices {
		binary.LittleEndian.PutUint64(idxBuf[i*8:], v)
	}
	if _, err := f.Write(idxBuf); err != nil {
		return fmt.Errorf("offlinegraph: writing index: %w", err)
	}

	dstBuf := make([]byte, 8*len(edges))
	for i, e := range edges {
		binary.LittleEndian.PutUint64(dstBuf[i*8:], uint64(e.Dst))
	}
	if _, err := f.Write(dstBuf); err != nil {
		return fmt.Errorf("offlinegraph: writing destinations: %w", err)
	}

	if hasEdgeData {
		dataBuf := make([]byte, 8*len(edges))
		for i, e := range edges {
			binary.LittleEndian.PutUint64(dataBuf[i*8:], e.Data)
		}
		if _, err := f.Write(dataBuf); err != nil {
			return fmt.Errorf("offlinegraph: writing edge data: %w", err)
		}
	}
	return nil
}
