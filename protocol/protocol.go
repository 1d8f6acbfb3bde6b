// Package protocol defines the peer-facing surface the worker drives:
// the outbound announcer contract (spec §6 "Protocol (outbound)") and
// the inbound event types fed through the worker's protocol event
// channel (spec §4.6 / §6 "Protocol (inbound events)"). The transport
// itself — how these bytes actually reach a peer — is explicitly out of
// scope (spec §1); this package only carries the shapes.
package protocol

import (
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/ledger"
)

// Outbound is the protocol-facing contract the worker calls into.
type Outbound interface {
	IntegratedBlock(id blockgraph.BlockID, block *blockgraph.Block) error
	NotifyBlockAttack(id blockgraph.BlockID) error
	SendWishlistDelta(add, remove map[blockgraph.BlockID]struct{}) error
	SendGetBlocksResults(results map[blockgraph.BlockID]*blockgraph.Block) error
}

// Event is the sum type of the three inbound variants spec §4.6 lists.
// The worker type-switches on the concrete type via the EventKind tag.
type Event struct {
	Kind EventKind

	ReceivedBlock       *ReceivedBlock
	ReceivedBlockHeader *ReceivedBlockHeader
	GetBlocks           *GetBlocksRequest
}

type EventKind int

const (
	EventReceivedBlock EventKind = iota
	EventReceivedBlockHeader
	EventGetBlocks
)

// ReceivedBlock is a full block gossiped in by a peer.
type ReceivedBlock struct {
	ID           blockgraph.BlockID
	Block        *blockgraph.Block
	OperationSet map[ledger.OperationID]struct{}
}

// ReceivedBlockHeader is a header-only announcement.
type ReceivedBlockHeader struct {
	ID     blockgraph.BlockID
	Header *blockgraph.Header
}

// GetBlocksRequest asks the worker to resolve a batch of block ids,
// preferring the active DAG and falling back to storage (spec §4.6).
type GetBlocksRequest struct {
	IDs   []blockgraph.BlockID
	Reply chan map[blockgraph.BlockID]*blockgraph.Block
}
