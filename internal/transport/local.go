package transport

import (
	"sync"

	"github.com/gthost/cusp-gluon/internal/ids"
)

// inbox guards a per-(phase) queue of pending messages for one host with a
// buffered capacity-1 channel used as a mutex, the same technique
// dforsyth-waffle-go/waffle/msgq.go uses for its InMsgQ (a channel token
// instead of sync.Mutex, predating this repo's use of sync.Mutex directly
// for the teacher's own structures).
type inbox struct {
	sem   chan struct{}
	byTag map[Phase][]Message
}

func newInbox() *inbox {
	ib := &inbox{sem: make(chan struct{}, 1), byTag: make(map[Phase][]Message)}
	ib.sem <- struct{}{}
	return ib
}

func (ib *inbox) push(phase Phase, msg Message) {
	<-ib.sem
	defer func() { ib.sem <- struct{}{} }()
	ib.byTag[phase] = append(ib.byTag[phase], msg)
}

func (ib *inbox) pop(phase Phase) (Message, bool) {
	<-ib.sem
	defer func() { ib.sem <- struct{}{} }()
	q := ib.byTag[phase]
	if len(q) == 0 {
		return Message{}, false
	}
	msg := q[0]
	ib.byTag[phase] = q[1:]
	return msg, true
}

// Network is a shared in-process hub connecting every LocalHost in a
// simulated multi-host job. It exists for deterministic tests of the
// partitioner and executor without opening real sockets.
type Network struct {
	mu      sync.RWMutex
	inboxes []*inbox
}

// NewNetwork allocates a hub for numHosts simulated hosts.
func NewNetwork(numHosts int) *Network {
	n := &Network{inboxes: make([]*inbox, numHosts)}
	for i := range n.inboxes {
		n.inboxes[i] = newInbox()
	}
	return n
}

// Host returns the Host handle for hostID within this network.
func (n *Network) Host(hostID ids.HostID) Host {
	return &LocalHost{net: n, self: hostID}
}

// LocalHost is the Host implementation backed by a Network.
type LocalHost struct {
	net  *Network
	self ids.HostID
}

var _ Host = (*LocalHost)(nil)

func (h *LocalHost) ID() ids.HostID { return h.self }
func (h *LocalHost) NumHosts() int  { return len(h.net.inboxes) }

func (h *LocalHost) SendTagged(dest ids.HostID, phase Phase, payload []byte) error {
	h.net.mu.RLock()
	ib := h.net.inboxes[dest]
	h.net.mu.RUnlock()
	ib.push(phase, Message{From: h.self, Payload: payload})
	return nil
}

func (h *LocalHost) ReceiveTagged(phase Phase) (Message, bool, error) {
	h.net.mu.RLock()
	ib := h.net.inboxes[h.self]
	h.net.mu.RUnlock()
	msg, ok := ib.pop(phase)
	return msg, ok, nil
}

// Flush is a no-op: SendTagged already delivers synchronously into the
// destination's inbox.
func (h *LocalHost) Flush() error { return nil }

// Close is a no-op for the in-memory network.
func (h *LocalHost) Close() error { return nil }
