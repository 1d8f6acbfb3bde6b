package worker

import (
	"github.com/liveevilll/massa/command"
	"github.com/liveevilll/massa/werrors"
)

// handleCommand implements spec §4.5: every variant is read-only against
// the DAG, so none of these calls is followed by a §4.7 fan-out. Each
// reply send is fallible and non-fatal per spec §7 — a requester that has
// already dropped its reply channel only produces a logged SendChannel
// warning.
func (w *Worker) handleCommand(cmd command.Command) {
	switch cmd.Kind {
	case command.KindGetBlockGraphStatus:
		status := w.blockDB.Export()
		trySend(cmd.GetBlockGraphStatus.Reply, status, "GetBlockGraphStatus")

	case command.KindGetActiveBlock:
		block, ok := w.blockDB.GetActiveBlock(cmd.GetActiveBlock.ID)
		trySend(cmd.GetActiveBlock.Reply, command.ActiveBlockResult{Block: block, Found: ok}, "GetActiveBlock")

	case command.KindGetSelectionDraws:
		raw, err := w.selector.Draws(cmd.GetSelectionDraws.Start, cmd.GetSelectionDraws.End)
		draws := make([]command.SelectionDraw, len(raw))
		for i, d := range raw {
			draws[i] = command.SelectionDraw{Slot: d.Slot, PublicKey: w.publicKeyForAddress(d.Address)}
		}
		trySend(cmd.GetSelectionDraws.Reply, command.SelectionDrawsResult{Draws: draws, Err: err}, "GetSelectionDraws")

	case command.KindGetBootGraph:
		trySend(cmd.GetBootGraph.Reply, w.blockDB.ExportBootstrapable(), "GetBootGraph")
	}
}

// trySend is a non-blocking reply send: every reply channel this package
// hands out is buffered with capacity 1, so the only way the default
// branch fires is a requester that never reads its single slot (already
// gone, or a bug on the caller's side) — exactly the werrors.SendChannelError
// case spec §7 calls non-fatal.
func trySend[T any](reply chan T, value T, cmdName string) {
	select {
	case reply <- value:
	default:
		log.Warn("command reply dropped", "command", cmdName, "err", (&werrors.SendChannelError{Reason: cmdName}).Error())
	}
}
