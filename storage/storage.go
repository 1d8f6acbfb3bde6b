// Package storage defines the optional long-term archival collaborator
// from spec §6. Two concrete backends are provided: a local on-disk
// store (syndtr/goleveldb, grounded on the teacher's own leveldb-backed
// chain database) and a remote object-storage backend
// (Azure/azure-storage-blob-go). Both snappy-compress block bytes before
// writing, the same way the teacher's core database layer compresses
// entries on disk.
package storage

import (
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/slot"
)

// Storage is the §6 Storage contract.
type Storage interface {
	GetBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error)
	AddBlockBatch(blocks []*blockgraph.Block) error
	Close() error
}

// encodedBlock is the shared compact wire shape both backends persist.
// Block bodies carry arbitrary Operation implementations this package
// does not own the concrete type of, so the reference backends persist
// only what spec §3/§6 actually require to answer GetBlock: the header
// and the operation Merkle root, not the operations themselves (a real
// archival tier would also persist raw operation bytes via
// Operation.CompactSerialise; decoding them back into concrete Operation
// values is an application-level concern this core does not own).
type encodedBlock struct {
	Period              uint64
	Thread              uint8
	Creator             [20]byte
	Parents             [][32]byte
	OperationMerkleRoot [32]byte
}

func toEncoded(b *blockgraph.Block) encodedBlock {
	e := encodedBlock{
		Period:              b.Header.Slot.Period,
		Thread:              b.Header.Slot.Thread,
		Creator:             b.Header.Creator,
		OperationMerkleRoot: b.OperationMerkleRoot,
	}
	for _, p := range b.Header.Parents {
		e.Parents = append(e.Parents, p)
	}
	return e
}

func fromEncoded(e encodedBlock) *blockgraph.Block {
	b := &blockgraph.Block{
		Header: blockgraph.Header{
			Slot:    slot.Slot{Period: e.Period, Thread: e.Thread},
			Creator: e.Creator,
		},
		OperationMerkleRoot: e.OperationMerkleRoot,
	}
	for _, p := range e.Parents {
		b.Header.Parents = append(b.Header.Parents, p)
	}
	return b
}
