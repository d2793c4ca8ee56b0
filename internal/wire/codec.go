// Package wire implements the self-describing, length-prefixed encoding
// spec.md §6 requires for messages exchanged between hosts: scalars,
// fixed-width integers, vectors, and the dynamic bitset. The teacher
// (worker/pagerank.go) already reaches for encoding/gob to move message
// values across the wire rather than hand-rolling a TLV format; this
// package generalizes that choice to the partitioner's envelopes instead
// of carrying the teacher's dropped github.com/golang/protobuf/proto
// dependency, which would require protoc-generated bindings this module
// cannot produce (see DESIGN.md).
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/gthost/cusp-gluon/internal/bitset"
)

// BitsetWire is the wire representation of a bitset.Set: gob cannot see
// into bitset.Set's unexported fields, so this is the length-prefixed
// (NBits, Words) pair spec.md §6 calls for, with conversions to and from
// the live bitset.Set used during computation.
type BitsetWire struct {
	NBits uint64
	Words []uint64
}

// ToBitset reconstructs a live bitset.Set from its wire form.
func (b BitsetWire) ToBitset() *bitset.Set {
	return bitset.FromWords(b.NBits, b.Words)
}

// FromBitset captures a live bitset.Set into its wire form.
func FromBitset(s *bitset.Set) BitsetWire {
	return BitsetWire{NBits: s.Len(), Words: s.Words()}
}

// Phase1Envelope is exchanged once per ordered pair of hosts during edge
// inspection (spec.md §4.1.1): the number of masters the recipient is to
// own among the sender's assigned range, the number of edges whose source
// is in that range but which the recipient owns, the recipient's slice of
// the per-node outgoing-edge counter (with the "+1" ownership sentinel),
// and the recipient's slice of the incoming-edge bitset.
type Phase1Envelope struct {
	NumNodesAssigned uint32
	NumEdgesAssigned uint64
	OutgoingCounts   []uint64
	Incoming         BitsetWire
}

// MasterListEnvelope carries one host's sorted master list during
// mirror-owner resolution (spec.md §4.1.3).
type MasterListEnvelope struct {
	GlobalIDs []uint64
}

// EdgeBatchEnvelope carries buffered edges for one source destined for a
// remote owner during edge distribution (spec.md §4.1.4). Data is empty
// when EdgeTy is void; otherwise it holds one entry per destination,
// parallel to Dsts.
type EdgeBatchEnvelope struct {
	Src  uint64
	Dsts []uint64
	Data []uint64
}

// Encode gob-encodes v into a flat byte slice. Any value that can be
// round-tripped through encoding/gob is usable, which covers every
// envelope type in this package plus caller-defined edge-data payloads.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes b into v, the inverse of Encode.
func Decode(b []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}
