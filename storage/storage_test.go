package storage

import (
	"testing"

	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/slot"
	"github.com/stretchr/testify/require"
)

func sampleBlock() *blockgraph.Block {
	var parent ident.Hash
	parent[0] = 0xaa
	var addr ident.Address
	addr[0] = 0x01
	b := &blockgraph.Block{
		Header: blockgraph.Header{
			Slot:    slot.Slot{Period: 3, Thread: 1},
			Creator: addr,
			Parents: []blockgraph.BlockID{parent},
		},
	}
	b.OperationMerkleRoot = ident.H([]byte("ops"))
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := sampleBlock()
	e := toEncoded(b)
	back := fromEncoded(e)

	require.Equal(t, b.Header.Slot, back.Header.Slot)
	require.Equal(t, b.Header.Creator, back.Header.Creator)
	require.Equal(t, b.Header.Parents, back.Header.Parents)
	require.Equal(t, b.OperationMerkleRoot, back.OperationMerkleRoot)
}
