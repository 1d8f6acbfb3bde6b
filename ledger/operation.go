// Package ledger defines the Operation and LedgerSnapshot contracts
// spec §3 describes, plus a reference in-memory implementation used by
// tests and by the default blockgraph.Graph. Balances use
// holiman/uint256 rather than math/big, matching the fixed-width
// integer the pack's geth-derived repos use for account state (the
// teacher itself still uses big.Int in berith/staking/point.go, written
// before uint256 existed upstream; this expansion adopts the pack's
// newer convention).
package ledger

import (
	"github.com/holiman/uint256"
	"github.com/liveevilll/massa/ident"
)

// OperationID is the content-hash identity of an Operation.
type OperationID = ident.Hash

// Change is a single signed balance delta applied to one address.
type Change struct {
	Address ident.Address
	Delta   *uint256.Int // two's-complement-free: Negative flags subtraction
	Negative bool
}

// Operation is the §3 Operation contract: opaque beyond id, involved
// addresses, ledger changes and a compact serialisation.
type Operation interface {
	ID() OperationID

	// InvolvedAddresses returns every address touched by this operation
	// given a fee-target address (the sender, any recipients, and the
	// fee target itself).
	InvolvedAddresses(feeTarget ident.Address) map[ident.Address]struct{}

	// Changes computes this operation's ledger deltas given a fee target
	// and thread count (some operations route fees to a thread-specific
	// sub-account in the original design; the reference implementation
	// below ignores threadCount beyond passing it through).
	Changes(feeTarget ident.Address, threadCount uint8) []Change

	// CompactSerialise returns the operation's canonical byte encoding,
	// used both for gossip (out of scope here) and for computing the
	// block's operation Merkle root.
	CompactSerialise() []byte
}

// RejectionReason explains why try_apply_changes failed; the worker
// never treats it as a fatal error (spec §7).
type RejectionReason struct {
	Address ident.Address
	Reason  string
}

func (r *RejectionReason) Error() string {
	return "ledger: " + r.Reason + " for " + r.Address.String()
}
