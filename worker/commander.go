package worker

import (
	"sync/atomic"
	"time"

	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/command"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/werrors"
)

// GetBlockGraphStatus, GetActiveBlock and GetSelectionDraws round-trip
// through the command channel, making Worker itself satisfy
// httpapi.Commander without httpapi needing to know about package
// command's wire shapes.
//
// Every round trip below also selects on managementCh, which Shutdown
// closes: Run's select can pick the shutdown case and return before ever
// reaching commandCh, and commandCh's buffer can likewise already be
// full. Without this, a caller racing Shutdown blocks forever on a reply
// that will never come — selecting on both sides bounds that wait to
// "until shutdown, if ever."

func (w *Worker) GetBlockGraphStatus() (blockgraph.Status, error) {
	reply := make(chan blockgraph.Status, 1)
	cmd := command.Command{
		Kind:                command.KindGetBlockGraphStatus,
		GetBlockGraphStatus: &command.GetBlockGraphStatus{Reply: reply},
	}
	select {
	case w.commandCh <- cmd:
	case <-w.managementCh:
		return blockgraph.Status{}, werrors.ErrShutdown
	}
	select {
	case res := <-reply:
		return res, nil
	case <-w.managementCh:
		return blockgraph.Status{}, werrors.ErrShutdown
	}
}

func (w *Worker) GetActiveBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error) {
	reply := make(chan command.ActiveBlockResult, 1)
	cmd := command.Command{
		Kind:           command.KindGetActiveBlock,
		GetActiveBlock: &command.GetActiveBlock{ID: id, Reply: reply},
	}
	select {
	case w.commandCh <- cmd:
	case <-w.managementCh:
		return nil, false, werrors.ErrShutdown
	}
	select {
	case res := <-reply:
		return res.Block, res.Found, nil
	case <-w.managementCh:
		return nil, false, werrors.ErrShutdown
	}
}

func (w *Worker) GetSelectionDraws(start, end slot.Slot) ([]command.SelectionDraw, error) {
	reply := make(chan command.SelectionDrawsResult, 1)
	cmd := command.Command{
		Kind:              command.KindGetSelectionDraws,
		GetSelectionDraws: &command.GetSelectionDraws{Start: start, End: end, Reply: reply},
	}
	select {
	case w.commandCh <- cmd:
	case <-w.managementCh:
		return nil, werrors.ErrShutdown
	}
	select {
	case res := <-reply:
		return res.Draws, res.Err
	case <-w.managementCh:
		return nil, werrors.ErrShutdown
	}
}

func (w *Worker) GetBootGraph() (blockgraph.BootstrapableGraph, error) {
	reply := make(chan blockgraph.BootstrapableGraph, 1)
	cmd := command.Command{
		Kind:         command.KindGetBootGraph,
		GetBootGraph: &command.GetBootGraph{Reply: reply},
	}
	select {
	case w.commandCh <- cmd:
	case <-w.managementCh:
		return blockgraph.BootstrapableGraph{}, werrors.ErrShutdown
	}
	select {
	case res := <-reply:
		return res, nil
	case <-w.managementCh:
		return blockgraph.BootstrapableGraph{}, werrors.ErrShutdown
	}
}

// Stats is the SUPPLEMENTED FEATURES operator snapshot beyond
// GetBlockGraphStatus: the current block-creation exclusion-set size and
// the duration of the last block-creation pass, both updated atomically
// from createBlock so they can be read from a different goroutine (e.g.
// httpapi) without a shared mutex over core worker state.
type Stats struct {
	PoolExclusionSetSize      int
	LastBlockCreationDuration time.Duration
}

func (w *Worker) Stats() Stats {
	return Stats{
		PoolExclusionSetSize:      int(atomic.LoadInt64(&w.statsExclusionSetSize)),
		LastBlockCreationDuration: time.Duration(atomic.LoadInt64(&w.statsLastBlockCreationNanos)),
	}
}
