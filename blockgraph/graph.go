package blockgraph

import (
	"sort"

	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/ledger"
	"github.com/liveevilll/massa/selection"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/xlog"
	"github.com/holiman/uint256"
)

var log = xlog.Root.New("blockgraph")

// SeedBalance lets tests and bootstrap code set up the reference
// ledger's starting state (there being no genesis-block replay logic in
// this reference double — fork-choice/ledger-from-genesis replay is the
// explicitly out-of-scope DAG internals spec §1 delegates away). It is
// the only writer of the reference ledger's balances, and it drops every
// per-parent-set balance GetLedgerAtParents has cached, so no cached
// value outlives a seeded change.
func SeedBalance(g Graph, addr ident.Address, balance uint64) {
	ref, ok := g.(*graph)
	if !ok {
		return
	}
	ref.mu.Lock()
	defer ref.mu.Unlock()
	ref.balances[addr] = balance
	ref.snapshotByParents = make(map[string]map[ident.Address]uint64)
}

func (g *graph) IncomingBlock(id BlockID, block *Block, operationIDs map[ledger.OperationID]struct{}, selector *selection.Selector, atSlot *slot.Slot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if selector != nil {
		draw := selector.Draw(block.Header.Slot)
		if block.Header.Slot.Period > 0 && !draw.Equal(block.Header.Creator) {
			g.attacks = append(g.attacks, id)
			log.Warn("block attributed to a non-elected creator", "block", id.String(), "slot", block.Header.Slot.String())
		}
	}

	g.active[id] = block
	g.headers[id] = &block.Header
	g.toPropagate[id] = block
	delete(g.wishlist, id)

	g.bestParents = bestParentsFor(block, g.bestParents, g.threadCount)
	return nil
}

func (g *graph) IncomingHeader(id BlockID, header *Header) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.active[id]; !exists {
		g.wishlist[id] = struct{}{}
	}
	g.headers[id] = header
	return nil
}

func (g *graph) SlotTick(selector *selection.Selector, atSlot *slot.Slot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if atSlot == nil {
		return nil
	}
	if atSlot.Thread < uint8(len(g.latestFinalPeriods)) {
		// Advance finality optimistically by one period behind the tip,
		// a simplified stand-in for the DAG's real finality rule.
		if atSlot.Period > 0 {
			g.latestFinalPeriods[atSlot.Thread] = atSlot.Period - 1
		}
	}
	return nil
}

func (g *graph) CreateBlock(atSlot slot.Slot, ops []ledger.Operation, merkleRoot ident.Hash, creator ident.Address, parents []BlockID) (BlockID, *Block, error) {
	block := &Block{
		Header: Header{
			Slot:    atSlot,
			Creator: creator,
			Parents: append([]BlockID(nil), parents...),
		},
		Operations:          ops,
		OperationMerkleRoot: merkleRoot,
	}
	return block.ID(), block, nil
}

func (g *graph) Prune() ([]*Block, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var finalized []*Block
	for id, block := range g.active {
		minFinal := g.latestFinalPeriods[block.Header.Slot.Thread]
		if block.Header.Slot.Period > 0 && block.Header.Slot.Period <= minFinal {
			finalized = append(finalized, block)
			g.discarded[id] = block
			delete(g.active, id)
		}
	}
	return finalized, nil
}

func (g *graph) GetBlocksToPropagate() (map[BlockID]*Block, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.toPropagate
	g.toPropagate = make(map[BlockID]*Block)
	return out, nil
}

func (g *graph) GetAttackAttempts() ([]BlockID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.attacks
	g.attacks = nil
	return out, nil
}

func (g *graph) GetBlockWishlist() (map[BlockID]struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[BlockID]struct{}, len(g.wishlist))
	for id := range g.wishlist {
		out[id] = struct{}{}
	}
	return out, nil
}

func (g *graph) GetLatestFinalBlocksPeriods() []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]uint64(nil), g.latestFinalPeriods...)
}

func (g *graph) GetBestParents() []BlockID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]BlockID(nil), g.bestParents...)
}

func (g *graph) GetLedgerAtParents(parents []BlockID, addresses map[ident.Address]struct{}) (*ledger.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := parentCacheKey(parents)
	cached, hit := g.snapshotByParents[string(key)]
	if hit {
		log.Trace("ledger snapshot cache hit", "parents", len(parents))
	} else {
		g.snapshotCache.Set(key, []byte{1})
		cached = make(map[ident.Address]uint64, len(addresses))
		g.snapshotByParents[string(key)] = cached
	}

	snap := ledger.NewSnapshot(addresses)
	for addr := range addresses {
		// Cached balances for this parent set are dropped whenever
		// SeedBalance changes the ledger (see its doc comment), so a value
		// already cached for this key is reused rather than re-read from
		// g.balances.
		bal, ok := cached[addr]
		if !ok {
			bal = g.balances[addr]
			cached[addr] = bal
		}
		snap.SetBalance(addr, uint256.NewInt(bal))
	}
	return snap, nil
}

func (g *graph) GetActiveBlock(id BlockID) (*Block, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.active[id]
	return b, ok
}

func (g *graph) Export() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Status{
		BestParents:         append([]BlockID(nil), g.bestParents...),
		LatestFinalPeriods:  append([]uint64(nil), g.latestFinalPeriods...),
		ActiveBlockCount:    len(g.active),
		DiscardedFinalCount: len(g.discarded),
	}
}

func (g *graph) ExportBootstrapable() BootstrapableGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := BootstrapableGraph{}
	for _, b := range g.active {
		out.Blocks = append(out.Blocks, b)
	}
	for _, h := range g.headers {
		out.Headers = append(out.Headers, h)
	}
	return out
}

func parentCacheKey(parents []BlockID) []byte {
	sorted := append([]BlockID(nil), parents...)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i][:]) < string(sorted[j][:])
	})
	buf := make([]byte, 0, len(sorted)*ident.HashSize)
	for _, p := range sorted {
		buf = append(buf, p[:]...)
	}
	return ident.H(buf).Bytes()
}

func bestParentsFor(block *Block, current []BlockID, threadCount uint8) []BlockID {
	out := append([]BlockID(nil), current...)
	for len(out) < int(threadCount) {
		out = append(out, BlockID{})
	}
	out[block.Header.Slot.Thread] = block.ID()
	return out
}
