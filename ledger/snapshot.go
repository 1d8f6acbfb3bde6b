package ledger

import (
	"github.com/holiman/bloomfilter/v2"
	"github.com/holiman/uint256"
	"github.com/liveevilll/massa/ident"
)

// Snapshot is a mutable balance projection over a set of addresses of
// interest, constructed for a given parent block set (spec §3). The
// reference implementation holds balances in memory; blockgraph.Graph is
// responsible for constructing one at the right parent state.
type Snapshot struct {
	balances map[ident.Address]*uint256.Int

	// seen is a probabilistic pre-filter over addresses this snapshot has
	// ever held a balance for, checked before the exact map lookup so a
	// miss short-circuits without a map probe.
	seen *bloomfilter.Filter
}

// NewSnapshot creates an empty snapshot. addressesOfInterest seeds the
// balances map with zero balances so Merge can later overwrite them with
// real values fetched from the parent state.
func NewSnapshot(addressesOfInterest map[ident.Address]struct{}) *Snapshot {
	n := len(addressesOfInterest)
	if n < 8 {
		n = 8
	}
	filter, _ := bloomfilter.New(uint64(n*10), 4)
	s := &Snapshot{
		balances: make(map[ident.Address]*uint256.Int, n),
		seen:     filter,
	}
	for addr := range addressesOfInterest {
		s.balances[addr] = uint256.NewInt(0)
		s.mark(addr)
	}
	return s
}

func (s *Snapshot) mark(addr ident.Address) {
	var key bloomKey
	copy(key[:], addr[:])
	s.seen.Add(key)
}

func (s *Snapshot) maybeHas(addr ident.Address) bool {
	var key bloomKey
	copy(key[:], addr[:])
	return s.seen.Contains(key)
}

// bloomKey adapts a 20-byte address to bloomfilter.Filter's hash.Hash64
// key contract via a fixed low-collision FNV-1a fold.
type bloomKey [20]byte

func (k bloomKey) Sum64() uint64 {
	var h uint64 = 14695981039346656037
	for _, b := range k {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

// SetBalance seeds or overwrites addr's balance, used when merging in
// state fetched from the parent blocks.
func (s *Snapshot) SetBalance(addr ident.Address, balance *uint256.Int) {
	s.balances[addr] = balance.Clone()
	s.mark(addr)
}

// Balance returns addr's balance, or zero if addr has never been loaded
// into this snapshot.
func (s *Snapshot) Balance(addr ident.Address) *uint256.Int {
	if !s.maybeHas(addr) {
		return uint256.NewInt(0)
	}
	if b, ok := s.balances[addr]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

// Merge folds other's balances into s, overwriting any address s already
// knows about — spec §4.3's "monotonic accretion of relevant state": each
// merge only ever adds more addresses of interest, it never drops one.
func (s *Snapshot) Merge(other *Snapshot) {
	for addr, bal := range other.balances {
		s.balances[addr] = bal.Clone()
		s.mark(addr)
	}
}

// TryApplyChanges attempts to apply every change atomically: if any
// change would underflow a balance, no change in the batch is applied
// and a *RejectionReason is returned. This is the §3 "try_apply_changes(c)
// -> ok | rejection" contract.
func (s *Snapshot) TryApplyChanges(changes []Change) error {
	next := make(map[ident.Address]*uint256.Int, len(changes))
	for _, c := range changes {
		cur, ok := next[c.Address]
		if !ok {
			cur = s.Balance(c.Address)
		}
		if c.Negative {
			if cur.Lt(c.Delta) {
				return &RejectionReason{Address: c.Address, Reason: "insufficient balance"}
			}
			cur = new(uint256.Int).Sub(cur, c.Delta)
		} else {
			cur = new(uint256.Int).Add(cur, c.Delta)
		}
		next[c.Address] = cur
	}
	for addr, bal := range next {
		s.balances[addr] = bal
		s.mark(addr)
	}
	return nil
}

// Addresses returns every address currently tracked, used by tests.
func (s *Snapshot) Addresses() []ident.Address {
	out := make([]ident.Address, 0, len(s.balances))
	for addr := range s.balances {
		out = append(out, addr)
	}
	return out
}
