// Package ids defines the identifier types shared by the partitioner and
// the parallel executor: host, global, and local node ids, plus the
// vertex-id-map file that tells every host who owns which global id.
package ids

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// HostID identifies one host in the job, in [0, NumHosts).
type HostID uint32

// GID is a dense global node id, in [0, NumGlobalNodes).
type GID uint64

// LID is a dense local node id on one host, in [0, NumNodes) on that host.
// Masters occupy [0, NumOwned); ghosts occupy [NumOwned, NumNodes).
type LID uint32

// Range is a half-open global id range [Lo, Hi) assigned to one host.
type Range struct {
	Lo GID
	Hi GID
}

// Len returns the number of global ids in the range.
func (r Range) Len() uint64 {
	if r.Hi <= r.Lo {
		return 0
	}
	return uint64(r.Hi - r.Lo)
}

// NodeAssignment is the external vertex-id-map: the owning host of every
// global id that this host was assigned as its master range. It is built
// once, read-only afterward, from a binary file of little-endian int32
// host ids, one per global id, covering the master range [Lo, Hi).
type NodeAssignment struct {
	Lo    GID
	hosts []int32
}

// HostOf returns the owning host of gid, where gid is known to fall inside
// the range this NodeAssignment was read for. An out-of-range gid is a
// precondition violation and panics rather than returning a sentinel —
// see spec.md §9's open question about find_hostID's unreachable branch.
func (na *NodeAssignment) HostOf(gid GID) HostID {
	offset := gid - na.Lo
	if offset >= GID(len(na.hosts)) {
		panic(fmt.Sprintf("ids: HostOf(%d) out of range [%d,%d)", gid, na.Lo, na.Lo+GID(len(na.hosts))))
	}
	return HostID(na.hosts[offset])
}

// Len returns the number of entries loaded.
func (na *NodeAssignment) Len() int { return len(na.hosts) }

// LoadNodeAssignment reads the slice of the vertex-id-map file covering
// [r.Lo, r.Hi) at byte offset r.Lo*4, per spec.md §6. Missing file or a
// truncated read is a fatal configuration/I/O error (spec.md §7 classes 1-2).
func LoadNodeAssignment(path string, r Range) (*NodeAssignment, error) {
	n := r.Len()
	if n == 0 {
		return nil, fmt.Errorf("ids: empty vertex-id-map range [%d,%d)", r.Lo, r.Hi)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ids: unable to open vertex-id-map %q: %w", path, err)
	}
	defer f.Close()

	offset := int64(r.Lo) * 4
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ids: seek to offset %d in %q: %w", offset, path, err)
	}

	buf := make([]byte, n*4)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("ids: reading %d entries from %q at offset %d: %w", n, path, offset, err)
	}

	hosts := make([]int32, n)
	for i := range hosts {
		hosts[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return &NodeAssignment{Lo: r.Lo, hosts: hosts}, nil
}

// WriteNodeAssignment writes hosts (one little-endian int32 per global id,
// starting at global id 0) to path. It exists for building test fixtures
// and small offline tools; production vertex-id-maps are produced upstream.
func WriteNodeAssignment(path string, hosts []int32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ids: unable to create vertex-id-map %q: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, len(hosts)*4)
	for i, h := range hosts {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(h))
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("ids: writing vertex-id-map %q: %w", path, err)
	}
	return nil
}
