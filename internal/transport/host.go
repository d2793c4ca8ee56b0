// Package transport implements the tagged, reliable inter-host messaging
// channel spec.md §6 specifies: sendTagged/recieveTagged/flush keyed by a
// monotonically increasing phase counter ("evilPhase"), one all-to-all per
// phase. spec.md §1 treats the transport as an external collaborator
// ("a reliable FIFO tagged channel per ordered pair of hosts"); this
// package gives it the minimal concrete shape the partitioner needs to
// compile and run end to end, per SPEC_FULL.md's restated non-goals.
package transport

import (
	"fmt"

	"github.com/gthost/cusp-gluon/internal/ids"
)

// Phase is the process-wide "evilPhase" counter: incremented once per
// all-to-all exchange, passed explicitly rather than as global mutable
// state (spec.md §9's reimplementation note).
type Phase uint64

// Message is one tagged payload received from a peer.
type Message struct {
	From    ids.HostID
	Payload []byte
}

// Host is the tagged-messaging contract the partitioner is built against.
// Implementations must be safe for concurrent use by multiple goroutines
// acting as the local worker threads of one host.
type Host interface {
	// ID returns this host's id.
	ID() ids.HostID
	// NumHosts returns the total number of hosts in the job.
	NumHosts() int
	// SendTagged buffers payload for dest under phase. It may be delivered
	// lazily; Flush forces delivery of anything buffered.
	SendTagged(dest ids.HostID, phase Phase, payload []byte) error
	// ReceiveTagged is a non-blocking poll for one message tagged phase.
	// It returns ok=false if nothing is currently available; callers loop.
	ReceiveTagged(phase Phase) (msg Message, ok bool, err error)
	// Flush forces delivery of everything buffered by SendTagged.
	Flush() error
	// Close releases any resources (connections, goroutines) the host holds.
	Close() error
}

// ReceiveBlocking polls ReceiveTagged in a busy loop until a message
// arrives, matching spec.md §5's description of the receive loop as "a
// busy polling loop with one non-blocking recieveTagged per iteration."
func ReceiveBlocking(h Host, phase Phase) (Message, error) {
	for {
		msg, ok, err := h.ReceiveTagged(phase)
		if err != nil {
			return Message{}, err
		}
		if ok {
			return msg, nil
		}
	}
}

// Barrier performs a simple all-to-all rendezvous under phase: every host
// sends every peer a zero-length "arrived" message and then waits to
// receive one from every peer, mirroring the host-barrier spec.md §4.1.5
// calls for around finalisation. It does not itself advance phase; callers
// own the phase-counter lifecycle per spec.md §9.
func Barrier(h Host, phase Phase) error {
	self := h.ID()
	n := h.NumHosts()

	for x := 0; x < n; x++ {
		if ids.HostID(x) == self {
			continue
		}
		if err := h.SendTagged(ids.HostID(x), phase, nil); err != nil {
			return fmt.Errorf("transport: barrier send to host %d: %w", x, err)
		}
	}
	if err := h.Flush(); err != nil {
		return fmt.Errorf("transport: barrier flush: %w", err)
	}

	remaining := n - 1
	for remaining > 0 {
		if _, err := ReceiveBlocking(h, phase); err != nil {
			return fmt.Errorf("transport: barrier receive: %w", err)
		}
		remaining--
	}
	return nil
}
