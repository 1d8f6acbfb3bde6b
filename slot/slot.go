// Package slot implements the deterministic (period, thread) clock the
// worker advances through. It is grounded on the teacher's epoch/period
// arithmetic in consensus/bsrr/berith.go (getStakeTargetBlock's
// epoch-bucketing of block numbers) and on the per-signer term/group
// delay scheduling in BSRR.Seal, generalized from "one block number" to
// "one slot per thread per period".
package slot

import (
	"fmt"
	"math"

	"github.com/liveevilll/massa/werrors"
)

// Slot identifies a discrete production opportunity: period p, thread t.
type Slot struct {
	Period uint64
	Thread uint8
}

// Less reports whether s sorts strictly before other: (p,t) < (p',t')
// iff p<p' or (p==p' and t<t').
func (s Slot) Less(other Slot) bool {
	if s.Period != other.Period {
		return s.Period < other.Period
	}
	return s.Thread < other.Thread
}

// Equal reports structural equality.
func (s Slot) Equal(other Slot) bool {
	return s.Period == other.Period && s.Thread == other.Thread
}

func (s Slot) String() string {
	return fmt.Sprintf("(%d,%d)", s.Period, s.Thread)
}

// Next returns the immediately following slot for a thread count
// threadCount, or ErrSlotOverflow if the period would wrap past
// math.MaxUint64.
func (s Slot) Next(threadCount uint8) (Slot, error) {
	if int(s.Thread)+1 < int(threadCount) {
		return Slot{Period: s.Period, Thread: s.Thread + 1}, nil
	}
	if s.Period == math.MaxUint64 {
		return Slot{}, werrors.ErrSlotOverflow
	}
	return Slot{Period: s.Period + 1, Thread: 0}, nil
}

// Index returns a flat, strictly monotonic index for s given threadCount,
// used to count entries between two slots (GetSelectionDraws) and in
// tests asserting total ordering. It overflows (wraps silently) only at
// period values so large multiplying by threadCount itself would
// overflow; callers validate ranges with Next first in practice.
func (s Slot) Index(threadCount uint8) uint64 {
	return s.Period*uint64(threadCount) + uint64(s.Thread)
}

// Range walks every slot in [start, end) in order, calling fn for each.
// It stops and returns ErrSlotOverflow if advancing past end would wrap,
// and otherwise returns the error fn returns, if any, without calling fn
// again.
func Range(start, end Slot, threadCount uint8, fn func(Slot) error) error {
	cur := start
	for cur.Less(end) {
		if err := fn(cur); err != nil {
			return err
		}
		next, err := cur.Next(threadCount)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// Count returns the number of slots in [start, end) for a given thread
// count, matching spec §8's "exactly end.index - start.index entries".
func Count(start, end Slot, threadCount uint8) uint64 {
	if !start.Less(end) {
		return 0
	}
	return end.Index(threadCount) - start.Index(threadCount)
}
