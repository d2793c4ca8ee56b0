package transport_test

import (
	"testing"

	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/transport"
	"github.com/stretchr/testify/require"
)

func TestLocalNetworkSendReceive(t *testing.T) {
	net := transport.NewNetwork(3)
	h0 := net.Host(0)
	h1 := net.Host(1)

	require.NoError(t, h0.SendTagged(1, transport.Phase(7), []byte("hello")))
	require.NoError(t, h0.Flush())

	msg, err := transport.ReceiveBlocking(h1, transport.Phase(7))
	require.NoError(t, err)
	require.Equal(t, ids.HostID(0), msg.From)
	require.Equal(t, []byte("hello"), msg.Payload)
}

func TestLocalNetworkReceiveTaggedNonBlockingEmpty(t *testing.T) {
	net := transport.NewNetwork(2)
	h1 := net.Host(1)

	_, ok, err := h1.ReceiveTagged(transport.Phase(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBarrierAllToAll(t *testing.T) {
	n := 4
	net := transport.NewNetwork(n)

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		h := net.Host(ids.HostID(i))
		go func(h transport.Host) {
			errs <- transport.Barrier(h, transport.Phase(0))
		}(h)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}
