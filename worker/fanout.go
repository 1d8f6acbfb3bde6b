package worker

import (
	mapset "github.com/deckarep/golang-set"
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/werrors"
)

// blockDBChanged implements spec §4.7. Ordering is contractual: prune
// before propagate (propagated blocks may reference newly-final state);
// propagate before wishlist (a block just integrated must not be
// requested); wishlist before the final-period update (a node fetching
// tail blocks should not be told finality has advanced past them).
func (w *Worker) blockDBChanged() error {
	finalized, err := w.blockDB.Prune()
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}
	if len(finalized) > 0 && w.store != nil {
		if err := w.store.AddBlockBatch(finalized); err != nil {
			return werrors.Collaborator("storage", err)
		}
	}

	toPropagate, err := w.blockDB.GetBlocksToPropagate()
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}
	for id, block := range toPropagate {
		if err := w.protoOut.IntegratedBlock(id, block); err != nil {
			return werrors.Collaborator("protocol", err)
		}
	}

	attacks, err := w.blockDB.GetAttackAttempts()
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}
	for _, id := range attacks {
		if err := w.protoOut.NotifyBlockAttack(id); err != nil {
			return werrors.Collaborator("protocol", err)
		}
		if w.metrics != nil {
			w.metrics.IncAttackDetected()
		}
	}

	newWishlist, err := w.blockDB.GetBlockWishlist()
	if err != nil {
		return werrors.Collaborator("blockgraph", err)
	}
	add, remove, newSet := diffWishlist(w.wishlist, newWishlist)
	if len(add) > 0 || len(remove) > 0 {
		if err := w.protoOut.SendWishlistDelta(add, remove); err != nil {
			return werrors.Collaborator("protocol", err)
		}
	}
	w.wishlist = newSet

	latestFinal := w.blockDB.GetLatestFinalBlocksPeriods()
	if !equalUint64Slices(w.latestFinalPeriods, latestFinal) {
		w.poolC.UpdateLatestFinalPeriods(latestFinal)
		w.latestFinalPeriods = latestFinal
	}
	return nil
}

// diffWishlist computes the symmetric difference between the cached
// wishlist and a freshly exported one, per spec §4.7 step 4, and returns
// the replacement set to store regardless of whether the delta ended up
// empty.
func diffWishlist(old mapset.Set, newWishlist map[blockgraph.BlockID]struct{}) (add, remove map[blockgraph.BlockID]struct{}, newSet mapset.Set) {
	add = map[blockgraph.BlockID]struct{}{}
	remove = map[blockgraph.BlockID]struct{}{}
	newSet = mapset.NewSet()

	for id := range newWishlist {
		newSet.Add(id)
		if !old.Contains(id) {
			add[id] = struct{}{}
		}
	}
	old.Each(func(v interface{}) bool {
		id := v.(blockgraph.BlockID)
		if _, still := newWishlist[id]; !still {
			remove[id] = struct{}{}
		}
		return false
	})
	return add, remove, newSet
}
