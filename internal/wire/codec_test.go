package wire_test

import (
	"testing"

	"github.com/gthost/cusp-gluon/internal/bitset"
	"github.com/gthost/cusp-gluon/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestPhase1EnvelopeRoundTrip(t *testing.T) {
	bs := bitset.New(8)
	bs.Set(3)
	bs.Set(7)

	env := wire.Phase1Envelope{
		NumNodesAssigned: 2,
		NumEdgesAssigned: 5,
		OutgoingCounts:   []uint64{1, 4},
		Incoming:         wire.FromBitset(bs),
	}

	b, err := wire.Encode(env)
	require.NoError(t, err)

	var got wire.Phase1Envelope
	require.NoError(t, wire.Decode(b, &got))

	require.Equal(t, env.NumNodesAssigned, got.NumNodesAssigned)
	require.Equal(t, env.NumEdgesAssigned, got.NumEdgesAssigned)
	require.Equal(t, env.OutgoingCounts, got.OutgoingCounts)

	reconstructed := got.Incoming.ToBitset()
	require.True(t, reconstructed.Test(3))
	require.True(t, reconstructed.Test(7))
	require.False(t, reconstructed.Test(0))
}

func TestEdgeBatchEnvelopeRoundTripVoidAndWeighted(t *testing.T) {
	voidBatch := wire.EdgeBatchEnvelope{Src: 10, Dsts: []uint64{11, 12}}
	b, err := wire.Encode(voidBatch)
	require.NoError(t, err)
	var gotVoid wire.EdgeBatchEnvelope
	require.NoError(t, wire.Decode(b, &gotVoid))
	require.Equal(t, voidBatch.Src, gotVoid.Src)
	require.Equal(t, voidBatch.Dsts, gotVoid.Dsts)
	require.Empty(t, gotVoid.Data)

	weighted := wire.EdgeBatchEnvelope{Src: 10, Dsts: []uint64{11, 12}, Data: []uint64{100, 200}}
	b, err = wire.Encode(weighted)
	require.NoError(t, err)
	var gotWeighted wire.EdgeBatchEnvelope
	require.NoError(t, wire.Decode(b, &gotWeighted))
	require.Equal(t, weighted.Data, gotWeighted.Data)
}

func TestMasterListEnvelopeRoundTrip(t *testing.T) {
	ml := wire.MasterListEnvelope{GlobalIDs: []uint64{0, 1, 2, 9}}
	b, err := wire.Encode(ml)
	require.NoError(t, err)

	var got wire.MasterListEnvelope
	require.NoError(t, wire.Decode(b, &got))
	require.Equal(t, ml.GlobalIDs, got.GlobalIDs)
}
