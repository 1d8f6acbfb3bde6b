// Package blockgraph defines the BlockGraph collaborator contract from
// spec §6 and ships a reference in-memory implementation good enough to
// drive the worker end-to-end in tests. The real fork-choice/finality
// rules are explicitly out of scope (spec §1 non-goals); this package
// only has to honor the interface the worker calls through.
package blockgraph

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/ledger"
	"github.com/liveevilll/massa/selection"
	"github.com/liveevilll/massa/slot"
)

// BlockID is the content-hash identity of a Block's header fields and
// operation Merkle root.
type BlockID = ident.Hash

// Header is opaque to the core beyond the fields the worker needs to
// reason about slot timing and parentage.
type Header struct {
	Slot    slot.Slot
	Creator ident.Address
	Parents []BlockID // one per thread
}

// Block pairs a header with its ordered operation list and Merkle root.
type Block struct {
	Header             Header
	Operations         []ledger.Operation
	OperationMerkleRoot ident.Hash
}

// ID returns the content hash of the block's header fields plus its
// operation Merkle root, recomputed from those canonical fields (not cached, since the reference graph is a test
// double, not a performance-sensitive production path).
func (b *Block) ID() BlockID {
	buf := make([]byte, 0, 8+1+len(b.Header.Parents)*ident.HashSize+20)
	buf = appendUint64(buf, b.Header.Slot.Period)
	buf = append(buf, b.Header.Slot.Thread)
	buf = append(buf, b.Header.Creator[:]...)
	for _, p := range b.Header.Parents {
		buf = append(buf, p[:]...)
	}
	buf = append(buf, b.OperationMerkleRoot[:]...)
	return ident.H(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(56-8*i)))
	}
	return buf
}

// Status is the §4.5 GetBlockGraphStatus snapshot-export shape: the DAG
// without operation bodies.
type Status struct {
	BestParents        []BlockID
	LatestFinalPeriods  []uint64
	ActiveBlockCount    int
	DiscardedFinalCount int
}

// BootstrapableGraph is a serialisable snapshot sufficient to resume a
// fresh node (spec §6's "export to BootstrapableGraph").
type BootstrapableGraph struct {
	Blocks  []*Block
	Headers []*Header
}

// Graph is the BlockGraph contract spec §6 lists.
type Graph interface {
	IncomingBlock(id BlockID, block *Block, operationIDs map[ledger.OperationID]struct{}, selector *selection.Selector, atSlot *slot.Slot) error
	IncomingHeader(id BlockID, header *Header) error
	SlotTick(selector *selection.Selector, atSlot *slot.Slot) error
	CreateBlock(atSlot slot.Slot, ops []ledger.Operation, merkleRoot ident.Hash, creator ident.Address, parents []BlockID) (BlockID, *Block, error)

	Prune() ([]*Block, error)
	GetBlocksToPropagate() (map[BlockID]*Block, error)
	GetAttackAttempts() ([]BlockID, error)
	GetBlockWishlist() (map[BlockID]struct{}, error)
	GetLatestFinalBlocksPeriods() []uint64
	GetBestParents() []BlockID
	GetLedgerAtParents(parents []BlockID, addresses map[ident.Address]struct{}) (*ledger.Snapshot, error)
	GetActiveBlock(id BlockID) (*Block, bool)

	Export() Status
	ExportBootstrapable() BootstrapableGraph
}

// graph is the reference in-memory BlockGraph.
type graph struct {
	mu sync.RWMutex

	threadCount uint8

	active    map[BlockID]*Block
	headers   map[BlockID]*Header
	discarded map[BlockID]*Block

	bestParents        []BlockID
	latestFinalPeriods []uint64

	toPropagate map[BlockID]*Block
	attacks     []BlockID
	wishlist    map[BlockID]struct{}

	// snapshotCache memoizes GetLedgerAtParents by a hash of the sorted
	// parent id set, so repeated calls within the same slot (the worker
	// re-acquires a snapshot once per pool batch, per spec §4.3 step 3b)
	// don't re-walk the whole ledger history. A fastcache entry is written
	// the first time a parent set is seen and is not read back;
	// snapshotByParents decides hit or miss and holds the actual balances
	// already materialized for that parent set, keyed the same way, so a
	// hit skips re-reading balances this parent set has already served.
	snapshotCache     *fastcache.Cache
	snapshotByParents map[string]map[ident.Address]uint64
	balances          map[ident.Address]uint64
}

// New constructs an empty reference graph seeded with genesisParents as
// the initial best parents (one opaque zero-value id per thread) and no
// finalized periods.
func New(threadCount uint8, genesisParents []BlockID) Graph {
	return &graph{
		threadCount:         threadCount,
		active:              make(map[BlockID]*Block),
		headers:             make(map[BlockID]*Header),
		discarded:           make(map[BlockID]*Block),
		bestParents:         append([]BlockID(nil), genesisParents...),
		latestFinalPeriods:  make([]uint64, threadCount),
		toPropagate:         make(map[BlockID]*Block),
		wishlist:            make(map[BlockID]struct{}),
		snapshotCache:       fastcache.New(4 * 1024 * 1024),
		snapshotByParents:   make(map[string]map[ident.Address]uint64),
		balances:            make(map[ident.Address]uint64),
	}
}
