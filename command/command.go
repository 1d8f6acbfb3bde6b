// Package command defines the request/response shapes spec §4.5 lists,
// carried over the worker's command channel from local API layers
// (package httpapi is one such layer). Each variant carries its own
// single-shot reply channel, the same "one reply channel per request"
// shape package protocol's GetBlocksRequest uses.
package command

import (
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/slot"
)

// Command is the sum type of the four §4.5 variants. The worker
// type-switches on Kind, matching protocol.Event's shape.
type Command struct {
	Kind Kind

	GetBlockGraphStatus *GetBlockGraphStatus
	GetActiveBlock      *GetActiveBlock
	GetSelectionDraws   *GetSelectionDraws
	GetBootGraph        *GetBootGraph
}

type Kind int

const (
	KindGetBlockGraphStatus Kind = iota
	KindGetActiveBlock
	KindGetSelectionDraws
	KindGetBootGraph
)

// GetBlockGraphStatus asks for a snapshot-export of the DAG without
// operation bodies.
type GetBlockGraphStatus struct {
	Reply chan blockgraph.Status
}

// GetActiveBlock asks for the full block if currently active.
type GetActiveBlock struct {
	ID    blockgraph.BlockID
	Reply chan ActiveBlockResult
}

// ActiveBlockResult carries the (block, found) pair a plain bool return
// can't cross a channel as two values.
type ActiveBlockResult struct {
	Block *blockgraph.Block
	Found bool
}

// GetSelectionDraws asks for (slot, public_key) pairs over [Start, End):
// the elected creator's public key, not its address — an address is a
// one-way hash of the key and spec §4.5/§8 scenario 6 both define the
// output as the key itself (genesis_public_key for period 0,
// cfg.nodes[draw].0 otherwise).
type GetSelectionDraws struct {
	Start, End slot.Slot
	Reply      chan SelectionDrawsResult
}

// SelectionDraw pairs a slot with its elected creator's public key.
type SelectionDraw struct {
	Slot      slot.Slot
	PublicKey ident.PublicKey
}

// SelectionDrawsResult carries the draws or a SlotOverflow failure.
type SelectionDrawsResult struct {
	Draws []SelectionDraw
	Err   error
}

// GetBootGraph asks for a bootstrappable serialisation of the DAG.
type GetBootGraph struct {
	Reply chan blockgraph.BootstrapableGraph
}
