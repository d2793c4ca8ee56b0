package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/gthost/cusp-gluon/internal/ids"
)

// frame header: phase(8) | fromHost(4) | payloadLen(4), big-endian.
const headerSize = 8 + 4 + 4

// TCPHost is a real-network Host implementation. It dials a fresh
// connection per send and keeps one long-lived listener accepting
// connections from peers, the way the teacher's master.go/worker.go pair
// net.Dial (one-shot per message, nodeName-formatted address) with a
// single net.Listen loop per role; here the same shape serves an
// arbitrary peer list instead of hardcoded cluster hostnames.
type TCPHost struct {
	self      ids.HostID
	addrs     []string // addrs[h] is the dial address of host h
	log       *log.Logger
	listener  net.Listener
	inbox     *inbox
	closeOnce sync.Once
	done      chan struct{}
}

var _ Host = (*TCPHost)(nil)

// NewTCPHost starts listening on listenAddr and returns a Host that can
// address every peer in addrs (addrs[self] is this host's own advertised
// address, unused for dialing).
func NewTCPHost(self ids.HostID, addrs []string, listenAddr string, logger *log.Logger) (*TCPHost, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %q: %w", listenAddr, err)
	}
	h := &TCPHost{
		self:     self,
		addrs:    addrs,
		log:      logger,
		listener: ln,
		inbox:    newInbox(),
		done:     make(chan struct{}),
	}
	go h.acceptLoop()
	return h, nil
}

func (h *TCPHost) acceptLoop() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-h.done:
				return
			default:
				h.log.Printf("accept error: %v", err)
				return
			}
		}
		go h.handleConn(conn)
	}
}

func (h *TCPHost) handleConn(conn net.Conn) {
	defer conn.Close()
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		h.log.Printf("read header: %v", err)
		return
	}
	phase := Phase(binary.BigEndian.Uint64(header[0:8]))
	from := ids.HostID(binary.BigEndian.Uint32(header[8:12]))
	plen := binary.BigEndian.Uint32(header[12:16])

	payload := make([]byte, plen)
	if plen > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			h.log.Printf("read payload: %v", err)
			return
		}
	}
	h.inbox.push(phase, Message{From: from, Payload: payload})
}

func (h *TCPHost) ID() ids.HostID { return h.self }
func (h *TCPHost) NumHosts() int  { return len(h.addrs) }

func (h *TCPHost) SendTagged(dest ids.HostID, phase Phase, payload []byte) error {
	conn, err := net.Dial("tcp", h.addrs[dest])
	if err != nil {
		return fmt.Errorf("transport: dial host %d at %q: %w", dest, h.addrs[dest], err)
	}
	defer conn.Close()

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[0:8], uint64(phase))
	binary.BigEndian.PutUint32(header[8:12], uint32(h.self))
	binary.BigEndian.PutUint32(header[12:16], uint32(len(payload)))

	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("transport: write header to host %d: %w", dest, err)
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("transport: write payload to host %d: %w", dest, err)
		}
	}
	return nil
}

func (h *TCPHost) ReceiveTagged(phase Phase) (Message, bool, error) {
	msg, ok := h.inbox.pop(phase)
	return msg, ok, nil
}

// Flush is a no-op: each SendTagged call completes its write before
// returning, so nothing is buffered beyond the OS socket layer.
func (h *TCPHost) Flush() error { return nil }

func (h *TCPHost) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return h.listener.Close()
}
