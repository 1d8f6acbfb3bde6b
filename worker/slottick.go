package worker

import "github.com/liveevilll/massa/werrors"

// onSlotTick implements spec §4.4. curSlot is the slot being crossed
// into this tick (the worker's previous_slot value for the remainder of
// the tick); block creation and the selector draw are evaluated against
// it, while the genesis-period skip gate is evaluated against the
// freshly re-advanced next_slot, exactly as §4.3's trigger condition
// names it.
func (w *Worker) onSlotTick() error {
	curSlot := w.nextSlot
	advanced, err := w.nextSlot.Next(w.cfg.ThreadCount)
	if err != nil {
		return err
	}
	w.previousSlot = &curSlot
	w.nextSlot = advanced

	if !w.cfg.DisableBlockCreation && w.nextSlot.Period > 0 {
		if w.selector.Draw(curSlot).Equal(w.localAddress()) {
			if err := w.createBlock(curSlot); err != nil {
				return err
			}
		} else if w.metrics != nil {
			w.metrics.IncBlockSkippedNotUs()
		}
	}

	if err := w.blockDB.SlotTick(w.selector, &curSlot); err != nil {
		return werrors.Collaborator("blockgraph", err)
	}
	w.poolC.UpdateCurrentSlot(curSlot)

	if w.metrics != nil {
		w.metrics.IncSlotTick()
	}

	return w.blockDBChanged()
}
