// Package pool defines the operation-pool collaborator contract spec §6
// lists, plus a simple in-memory reference implementation. The real
// mempool ranking algorithm is explicitly out of scope (spec §1); this
// package only has to supply operations in *some* stable, pre-ranked
// order, grounded on the teacher's
// types.NewTransactionsByPriceAndNonce / TxPool.Pending() split that
// miner.worker.commitNewWork consumes.
package pool

import (
	"sort"
	"sync"

	"github.com/liveevilll/massa/ledger"
	"github.com/liveevilll/massa/slot"
)

// Pool is the §6 Pool contract.
type Pool interface {
	UpdateCurrentSlot(s slot.Slot)
	UpdateLatestFinalPeriods(periods []uint64)

	// GetOperationBatch returns up to maxCount operations (capped by a
	// byte budget, spec §9's open question resolved as
	// worker.Config.PoolByteBudget rather than a literal), excluding any
	// id in exclude, in the pool's pre-ranked order.
	GetOperationBatch(s slot.Slot, exclude map[ledger.OperationID]struct{}, maxCount int, maxBytes int) ([]ledger.Operation, error)
}

// pool is the reference implementation: a flat slice of operations kept
// in insertion order, which already satisfies "pre-ranked" trivially for
// tests exercising the worker's block-creation loop.
type pool struct {
	mu  sync.Mutex
	ops []ledger.Operation
}

// New returns an empty reference pool.
func New() Pool {
	return &pool{}
}

// Add appends operations in priority order (highest-priority first),
// used by tests to seed the pool.
func Add(p Pool, ops ...ledger.Operation) {
	ref, ok := p.(*pool)
	if !ok {
		return
	}
	ref.mu.Lock()
	defer ref.mu.Unlock()
	ref.ops = append(ref.ops, ops...)
}

func (p *pool) UpdateCurrentSlot(s slot.Slot) {}

func (p *pool) UpdateLatestFinalPeriods(periods []uint64) {}

// GetOperationBatch never removes operations from the pool on its own —
// only the exclude set (entirely the worker's responsibility, rebuilt
// fresh each slot) determines what is no longer a candidate. A real
// pool would additionally drop an operation once the block containing
// it is finalized, but that lifecycle is part of the mempool ranking
// algorithm this spec puts out of scope.
func (p *pool) GetOperationBatch(s slot.Slot, exclude map[ledger.OperationID]struct{}, maxCount int, maxBytes int) ([]ledger.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []ledger.Operation
	usedBytes := 0
	for _, op := range p.ops {
		if len(out) >= maxCount {
			break
		}
		if _, excluded := exclude[op.ID()]; excluded {
			continue
		}
		size := len(op.CompactSerialise())
		if usedBytes+size > maxBytes {
			continue
		}
		out = append(out, op)
		usedBytes += size
	}
	return out, nil
}

// sortByID returns a copy of ops ordered by ascending id, a helper for
// tests that compare sets of operation ids independent of insertion order.
func sortByID(ops []ledger.Operation) []ledger.Operation {
	out := append([]ledger.Operation(nil), ops...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID(), out[j].ID()
		return string(a[:]) < string(b[:])
	})
	return out
}
