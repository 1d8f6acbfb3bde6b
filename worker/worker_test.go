package worker

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	mapset "github.com/deckarep/golang-set"
	"github.com/holiman/uint256"
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/command"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/ledger"
	"github.com/liveevilll/massa/pool"
	"github.com/liveevilll/massa/protocol"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/storage"
	"github.com/stretchr/testify/require"
)

// fakeOp is a minimal ledger.Operation a test can script precisely: which
// address it touches and whether its change succeeds or underflows.
type fakeOp struct {
	id       ledger.OperationID
	addr     ident.Address
	negative bool
	delta    uint64
	payload  byte
}

func (f fakeOp) ID() ledger.OperationID { return f.id }

func (f fakeOp) InvolvedAddresses(ident.Address) map[ident.Address]struct{} {
	return map[ident.Address]struct{}{f.addr: {}}
}

func (f fakeOp) Changes(ident.Address, uint8) []ledger.Change {
	return []ledger.Change{{Address: f.addr, Delta: uint256.NewInt(f.delta), Negative: f.negative}}
}

func (f fakeOp) CompactSerialise() []byte { return []byte{f.payload} }

func opID(b byte) ledger.OperationID {
	var id ledger.OperationID
	id[0] = b
	return id
}

// requireOperationIDsEqual compares two ordered operation-id slices,
// dumping both sides through spew on mismatch — plain %v output on a
// fixed-width id array is unreadable, spew gives a diffable listing.
func requireOperationIDsEqual(t *testing.T, want, got []ledger.OperationID) {
	t.Helper()
	if !require.ObjectsAreEqual(want, got) {
		t.Fatalf("operation id sets differ:\nwant:\n%s\ngot:\n%s", spew.Sdump(want), spew.Sdump(got))
	}
}

// fakeOutbound records every call the worker makes against protocol.Outbound.
type fakeOutbound struct {
	integrated     []blockgraph.BlockID
	attacks        []blockgraph.BlockID
	wishlistAdd    map[blockgraph.BlockID]struct{}
	wishlistRemove map[blockgraph.BlockID]struct{}
	wishlistCalls  int
	getBlocks      []map[blockgraph.BlockID]*blockgraph.Block
}

func (f *fakeOutbound) IntegratedBlock(id blockgraph.BlockID, _ *blockgraph.Block) error {
	f.integrated = append(f.integrated, id)
	return nil
}

func (f *fakeOutbound) NotifyBlockAttack(id blockgraph.BlockID) error {
	f.attacks = append(f.attacks, id)
	return nil
}

func (f *fakeOutbound) SendWishlistDelta(add, remove map[blockgraph.BlockID]struct{}) error {
	f.wishlistCalls++
	f.wishlistAdd = add
	f.wishlistRemove = remove
	return nil
}

func (f *fakeOutbound) SendGetBlocksResults(results map[blockgraph.BlockID]*blockgraph.Block) error {
	f.getBlocks = append(f.getBlocks, results)
	return nil
}

// fakeStorage is a minimal storage.Storage double that counts reads per id.
type fakeStorage struct {
	blocks map[blockgraph.BlockID]*blockgraph.Block
	reads  map[blockgraph.BlockID]int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blocks: map[blockgraph.BlockID]*blockgraph.Block{}, reads: map[blockgraph.BlockID]int{}}
}

func (s *fakeStorage) GetBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error) {
	s.reads[id]++
	b, ok := s.blocks[id]
	return b, ok, nil
}

func (s *fakeStorage) AddBlockBatch(blocks []*blockgraph.Block) error {
	for _, b := range blocks {
		s.blocks[b.ID()] = b
	}
	return nil
}

func (s *fakeStorage) Close() error { return nil }

// newTestWorker builds a Worker wired with a real reference blockgraph and
// pool, two nodes, and the genesis private key set to node 0's key so that
// every period-0 slot's draw equals node 0's own address — this lets tests
// control leader election without reimplementing the weighted draw.
func newTestWorker(t *testing.T, out *fakeOutbound, store *fakeStorage, maxOps int) (*Worker, blockgraph.Graph, pool.Pool) {
	t.Helper()

	priv0, err := ident.GenerateKey()
	require.NoError(t, err)
	priv1, err := ident.GenerateKey()
	require.NoError(t, err)
	pub0 := ident.DerivePublicKey(priv0)
	pub1 := ident.DerivePublicKey(priv1)

	cfg := Config{
		ThreadCount:      2,
		SlotDuration:     time.Second,
		GenesisTimestamp: time.Unix(0, 0),
		Nodes: []NodeIdentity{
			{Public: pub0, Private: priv0, Weight: 1},
			{Public: pub1, Private: priv1, Weight: 1},
		},
		LocalNodeIndex:        0,
		MaxOperationsPerBlock: maxOps,
		PoolByteBudget:        1 << 20,
		GenesisPrivateKey:     priv0,
		SelectionSeed:         1,
		DrawCacheSize:         16,
	}

	g := blockgraph.New(cfg.ThreadCount, []blockgraph.BlockID{{}, {}})
	p := pool.New()

	var st storage.Storage
	if store != nil {
		st = store
	}

	w, err := New(cfg, g, p, out, make(chan protocol.Event), st, nil, nil)
	require.NoError(t, err)
	return w, g, p
}

// Scenario 1: genesis-period leader skip. cur_slot=(0,0): the node is
// elected (genesis address) but block creation must be skipped because the
// re-advanced next_slot is still period 0.
func TestOnSlotTick_GenesisPeriodSkipsBlockCreation(t *testing.T) {
	out := &fakeOutbound{}
	w, g, _ := newTestWorker(t, out, nil, 10)
	w.nextSlot = slot.Slot{Period: 0, Thread: 0}
	w.previousSlot = nil

	err := w.onSlotTick()
	require.NoError(t, err)

	require.Equal(t, slot.Slot{Period: 0, Thread: 0}, *w.previousSlot)
	require.Equal(t, slot.Slot{Period: 0, Thread: 1}, w.nextSlot)
	require.Equal(t, 0, g.Export().ActiveBlockCount)
	require.Empty(t, out.integrated)
}

// Scenario 2: cur_slot=(0,1) is elected (still period 0, genesis address)
// and next_slot advances to (1,0) — period 1, so block creation proceeds.
// Two accepted operations produce exactly one created+integrated block.
func TestOnSlotTick_ElectedBlockAtPeriodBoundary(t *testing.T) {
	out := &fakeOutbound{}
	w, g, p := newTestWorker(t, out, nil, 10)
	w.nextSlot = slot.Slot{Period: 0, Thread: 1}

	a1 := ident.Address{1}
	blockgraph.SeedBalance(g, a1, 100)
	op1 := fakeOp{id: opID(1), addr: a1, delta: 1, payload: 0xAA}
	op2 := fakeOp{id: opID(2), addr: a1, delta: 1, payload: 0xBB}
	pool.Add(p, op1, op2)

	err := w.onSlotTick()
	require.NoError(t, err)

	require.Equal(t, slot.Slot{Period: 1, Thread: 0}, w.nextSlot)
	status := g.Export()
	require.Equal(t, 1, status.ActiveBlockCount)
	require.Len(t, out.integrated, 1)

	var created *blockgraph.Block
	for _, id := range out.integrated {
		b, ok := g.GetActiveBlock(id)
		require.True(t, ok)
		created = b
	}
	require.Len(t, created.Operations, 2)
	require.Equal(t, op1.ID(), created.Operations[0].ID())
	require.Equal(t, op2.ID(), created.Operations[1].ID())
	expectedRoot := operationMerkleRoot([]ledger.Operation{op1, op2})
	require.Equal(t, expectedRoot, created.OperationMerkleRoot)
}

// Scenario 3: one of three candidate operations is rejected by the ledger
// (insufficient balance); the created block includes only the two
// survivors, in order, and the pool is asked again with the full
// included+rejected set excluded before exhausting.
func TestCreateBlock_RejectionThenPoolExhaustion(t *testing.T) {
	out := &fakeOutbound{}
	w, g, p := newTestWorker(t, out, nil, 3)

	a1 := ident.Address{1}
	a2 := ident.Address{2}
	blockgraph.SeedBalance(g, a1, 100)
	blockgraph.SeedBalance(g, a2, 0) // insufficient balance for op2's debit

	op1 := fakeOp{id: opID(1), addr: a1, delta: 1, payload: 1}
	op2 := fakeOp{id: opID(2), addr: a2, delta: 1, negative: true, payload: 2}
	op3 := fakeOp{id: opID(3), addr: a1, delta: 1, payload: 3}
	pool.Add(p, op1, op2, op3)

	curSlot := slot.Slot{Period: 1, Thread: 0}
	err := w.createBlock(curSlot)
	require.NoError(t, err)
	// createBlock only feeds the block into the graph; the fan-out that
	// announces it to protocol runs separately, as onSlotTick does.
	require.NoError(t, w.blockDBChanged())

	require.Len(t, out.integrated, 1)
	var created *blockgraph.Block
	for _, id := range out.integrated {
		b, _ := g.GetActiveBlock(id)
		created = b
	}
	require.Len(t, created.Operations, 2)
	gotIDs := make([]ledger.OperationID, len(created.Operations))
	for i, op := range created.Operations {
		gotIDs[i] = op.ID()
	}
	requireOperationIDsEqual(t, []ledger.OperationID{op1.ID(), op3.ID()}, gotIDs)
}

// Scenario 4: GetBlocks resolves one id from the active DAG and falls back
// to storage for the other, reading storage exactly once for that id.
func TestHandleGetBlocks_StorageFallback(t *testing.T) {
	out := &fakeOutbound{}
	store := newFakeStorage()
	w, g, _ := newTestWorker(t, out, store, 10)

	activeID, activeBlock, err := g.CreateBlock(slot.Slot{Period: 1, Thread: 0}, nil, ident.Hash{}, ident.Address{9}, []blockgraph.BlockID{{}, {}})
	require.NoError(t, err)
	require.NoError(t, g.IncomingBlock(activeID, activeBlock, nil, w.selector, nil))

	storageOnlyBlock := &blockgraph.Block{Header: blockgraph.Header{
		Slot:    slot.Slot{Period: 2, Thread: 0},
		Creator: ident.Address{8},
		Parents: []blockgraph.BlockID{{}, {}},
	}}
	storageOnlyID := storageOnlyBlock.ID()
	store.blocks[storageOnlyID] = storageOnlyBlock

	reply := make(chan map[blockgraph.BlockID]*blockgraph.Block, 1)
	req := &protocol.GetBlocksRequest{IDs: []blockgraph.BlockID{activeID, storageOnlyID}, Reply: reply}

	err = w.handleGetBlocks(req)
	require.NoError(t, err)

	results := <-reply
	require.Len(t, results, 2)
	require.Equal(t, activeBlock, results[activeID])
	require.Equal(t, storageOnlyBlock, results[storageOnlyID])
	require.Equal(t, 1, store.reads[storageOnlyID])
	require.Equal(t, 0, store.reads[activeID])
}

// Scenario 5: the wishlist delta fans out exactly the symmetric difference
// between the cached set {X,Y} and a freshly exported {Y,Z}.
func TestBlockDBChanged_WishlistDelta(t *testing.T) {
	out := &fakeOutbound{}
	w, g, _ := newTestWorker(t, out, nil, 10)

	headerX := &blockgraph.Header{Slot: slot.Slot{Period: 1, Thread: 0}, Creator: ident.Address{1}, Parents: []blockgraph.BlockID{{}, {}}}
	headerY := &blockgraph.Header{Slot: slot.Slot{Period: 1, Thread: 1}, Creator: ident.Address{2}, Parents: []blockgraph.BlockID{{}, {}}}
	headerZ := &blockgraph.Header{Slot: slot.Slot{Period: 2, Thread: 0}, Creator: ident.Address{3}, Parents: []blockgraph.BlockID{{}, {}}}
	idX := (&blockgraph.Block{Header: *headerX}).ID()
	idY := (&blockgraph.Block{Header: *headerY}).ID()
	idZ := (&blockgraph.Block{Header: *headerZ}).ID()

	require.NoError(t, g.IncomingHeader(idY, headerY))
	require.NoError(t, g.IncomingHeader(idZ, headerZ))

	w.wishlist = mapset.NewSet()
	w.wishlist.Add(idX)
	w.wishlist.Add(idY)

	err := w.blockDBChanged()
	require.NoError(t, err)

	require.Equal(t, 1, out.wishlistCalls)
	require.Equal(t, map[blockgraph.BlockID]struct{}{idZ: {}}, out.wishlistAdd)
	require.Equal(t, map[blockgraph.BlockID]struct{}{idX: {}}, out.wishlistRemove)
	require.True(t, w.wishlist.Contains(idY))
	require.True(t, w.wishlist.Contains(idZ))
	require.False(t, w.wishlist.Contains(idX))
}

// Scenario 6: selection draws spanning the genesis boundary carry the
// genesis public key for every period-0 slot regardless of weighted
// outcome, and the drawn node's own public key (not its address) past
// the boundary.
func TestHandleCommand_SelectionDrawsAcrossGenesisBoundary(t *testing.T) {
	out := &fakeOutbound{}
	w, _, _ := newTestWorker(t, out, nil, 10)

	reply := make(chan command.SelectionDrawsResult, 1)
	cmd := command.Command{
		Kind: command.KindGetSelectionDraws,
		GetSelectionDraws: &command.GetSelectionDraws{
			Start: slot.Slot{Period: 0, Thread: 0},
			End:   slot.Slot{Period: 1, Thread: 1},
			Reply: reply,
		},
	}
	w.handleCommand(cmd)
	res := <-reply
	require.NoError(t, res.Err)
	require.Len(t, res.Draws, 3)

	for _, d := range res.Draws[:2] {
		require.Equal(t, 0, int(d.Slot.Period))
		require.True(t, w.genesisPublicKey.Equal(d.PublicKey))
	}

	// Past the genesis boundary: the public key must resolve back to
	// whichever node address the raw selector draw elected, not the
	// local/genesis key.
	last := res.Draws[2]
	require.Equal(t, 1, int(last.Slot.Period))
	wantAddr := w.selector.Draw(last.Slot)
	require.Equal(t, wantAddr, ident.AddressFromPublicKey(last.PublicKey))

	var matched bool
	for _, n := range w.cfg.Nodes {
		if n.Public.Equal(last.PublicKey) {
			matched = true
		}
	}
	require.True(t, matched, "drawn public key must match a configured node")
}
