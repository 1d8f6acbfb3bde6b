package worker

import (
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/ledger"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/werrors"
)

// createBlock implements spec §4.3's iterative fill-against-ledger
// algorithm, grounded on the teacher's
// miner.worker.commitNewWork/commitTransactions loop: repeatedly pull a
// batch from the pool, merge in only the ledger state the batch's
// candidates actually touch, and apply each candidate's changes to a
// snapshot that only ever accretes addresses of interest.
func (w *Worker) createBlock(curSlot slot.Slot) error {
	start := time.Now()
	feeTarget := w.localAddress()

	parents := w.blockDB.GetBestParents()
	snap, err := w.blockDB.GetLedgerAtParents(parents, map[ident.Address]struct{}{})
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}

	var included []ledger.Operation
	includedIDs := mapset.NewSet()
	rejected := mapset.NewSet()

	for len(included) < w.cfg.MaxOperationsPerBlock {
		remaining := w.cfg.MaxOperationsPerBlock - len(included)
		exclude := excludeSet(includedIDs, rejected)
		recordExclusionSetSize(w, len(exclude))

		batch, err := w.poolC.GetOperationBatch(curSlot, exclude, remaining, w.cfg.PoolByteBudget)
		if err != nil {
			return werrors.Collaborator("pool", err)
		}
		if len(batch) == 0 {
			break
		}

		addrsOfInterest := map[ident.Address]struct{}{}
		for _, op := range batch {
			for addr := range op.InvolvedAddresses(feeTarget) {
				addrsOfInterest[addr] = struct{}{}
			}
		}
		fresh, err := w.blockDB.GetLedgerAtParents(parents, addrsOfInterest)
		if err != nil {
			return werrors.Collaborator("blockgraph", err)
		}
		snap.Merge(fresh)

		for _, op := range batch {
			if len(included) >= w.cfg.MaxOperationsPerBlock {
				break
			}
			changes := op.Changes(feeTarget, w.cfg.ThreadCount)
			if err := snap.TryApplyChanges(changes); err != nil {
				rejected.Add(op.ID())
				log.Info("operation rejected during block creation", "op", op.ID().String(), "slot", curSlot.String(), "reason", err)
				continue
			}
			included = append(included, op)
			includedIDs.Add(op.ID())
		}

		if len(batch) < remaining {
			// Pool exhausted for this slot.
			break
		}
	}

	merkleRoot := operationMerkleRoot(included)

	id, block, err := w.blockDB.CreateBlock(curSlot, included, merkleRoot, feeTarget, parents)
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}

	opIDs := make(map[ledger.OperationID]struct{}, len(included))
	for _, op := range included {
		opIDs[op.ID()] = struct{}{}
	}

	// The locally created block goes through the same ingress path as a
	// peer block, preserving a single validation point (spec §4.3 step 6).
	if err := w.blockDB.IncomingBlock(id, block, opIDs, w.selector, &curSlot); err != nil {
		return werrors.Collaborator("blockgraph", err)
	}

	if w.metrics != nil {
		w.metrics.IncBlockCreated(len(included))
	}
	recordBlockCreationDuration(w, time.Since(start))
	return nil
}

func excludeSet(sets ...mapset.Set) map[ledger.OperationID]struct{} {
	out := map[ledger.OperationID]struct{}{}
	for _, s := range sets {
		s.Each(func(v interface{}) bool {
			out[v.(ledger.OperationID)] = struct{}{}
			return false
		})
	}
	return out
}

func operationMerkleRoot(ops []ledger.Operation) ident.Hash {
	var buf []byte
	for _, op := range ops {
		buf = append(buf, op.CompactSerialise()...)
	}
	return ident.H(buf)
}
