package worker

import (
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/protocol"
	"github.com/liveevilll/massa/werrors"
)

// handleProtocolEvent implements spec §4.6. The first two variants each
// mutate the DAG exactly once and are each followed by exactly one §4.7
// fan-out, per the §8 invariant; GetBlocks is read-only and triggers none.
func (w *Worker) handleProtocolEvent(ev protocol.Event) error {
	switch ev.Kind {
	case protocol.EventReceivedBlock:
		rb := ev.ReceivedBlock
		if err := w.blockDB.IncomingBlock(rb.ID, rb.Block, rb.OperationSet, w.selector, nil); err != nil {
			return werrors.Collaborator("blockgraph", err)
		}
		if w.metrics != nil {
			w.metrics.IncBlockReceived()
		}
		return w.blockDBChanged()

	case protocol.EventReceivedBlockHeader:
		rh := ev.ReceivedBlockHeader
		if err := w.blockDB.IncomingHeader(rh.ID, rh.Header); err != nil {
			return werrors.Collaborator("blockgraph", err)
		}
		return w.blockDBChanged()

	case protocol.EventGetBlocks:
		return w.handleGetBlocks(ev.GetBlocks)
	}
	return nil
}

// handleGetBlocks implements the §4.6 GetBlocks row: active DAG first,
// storage fallback second, silent omission if neither has it.
func (w *Worker) handleGetBlocks(req *protocol.GetBlocksRequest) error {
	results := make(map[blockgraph.BlockID]*blockgraph.Block, len(req.IDs))
	for _, id := range req.IDs {
		if block, ok := w.blockDB.GetActiveBlock(id); ok {
			results[id] = block
			continue
		}
		if w.store == nil {
			continue
		}
		block, found, err := w.store.GetBlock(id)
		if err != nil {
			return werrors.Collaborator("storage", err)
		}
		if found {
			results[id] = block
		}
	}

	if req.Reply != nil {
		select {
		case req.Reply <- results:
		default:
			log.Warn("get_blocks reply dropped", "err", (&werrors.SendChannelError{Reason: "GetBlocks"}).Error())
		}
	}

	if err := w.protoOut.SendGetBlocksResults(results); err != nil {
		return werrors.Collaborator("protocol", err)
	}
	return nil
}
