package worker

import (
	"time"

	"github.com/liveevilll/massa/ident"
)

// NodeIdentity is one entry in the configured roster: a node's keypair
// and its leader-selection weight.
type NodeIdentity struct {
	Public  ident.PublicKey
	Private ident.PrivateKey
	Weight  uint64
}

// Config is the worker's immutable configuration, built once by the
// embedder and never mutated afterward — the same "validated once at
// construction" shape as the teacher's params.ChainConfig. CLI/flag/file
// parsing into this struct is explicitly out of scope.
type Config struct {
	ThreadCount           uint8
	SlotDuration          time.Duration
	GenesisTimestamp      time.Time
	Nodes                 []NodeIdentity
	LocalNodeIndex        int
	MaxOperationsPerBlock int
	DisableBlockCreation  bool
	GenesisPrivateKey     ident.PrivateKey

	// PoolByteBudget resolves §9's open question about the pool's literal
	// 1000-byte-per-batch budget: a configured field rather than a magic
	// constant.
	PoolByteBudget int

	// SelectionSeed and DrawCacheSize resolve §9's "expose seed and
	// weights as configuration" note; weights travel on each NodeIdentity.
	SelectionSeed int64
	DrawCacheSize int
}

func (c Config) localNode() NodeIdentity {
	return c.Nodes[c.LocalNodeIndex]
}
