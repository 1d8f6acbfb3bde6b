// Package worker implements the consensus worker core: the single
// cooperative event loop that advances a node through discrete slots,
// drives a block-DAG (package blockgraph), creates blocks when locally
// elected, and fans out every DAG mutation to the pool, protocol and
// storage collaborators. It is grounded on the teacher's miner.worker —
// channel-multiplexed, single-writer, timer-reset-in-place — generalized
// from Ethereum's continuous work-resubmission model to this system's
// discrete slot clock.
package worker

import (
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/clockcmp"
	"github.com/liveevilll/massa/command"
	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/metrics"
	"github.com/liveevilll/massa/pool"
	"github.com/liveevilll/massa/protocol"
	"github.com/liveevilll/massa/selection"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/storage"
	"github.com/liveevilll/massa/werrors"
	"github.com/liveevilll/massa/xlog"
)

var log = xlog.Root.New("worker")

// Worker is the sole owner of every field below for its entire lifetime;
// external code interacts only through commandCh, managementCh and the
// protocol event channel it was constructed with (spec §3's "Ownership"
// clause). No mutex guards these fields because no other goroutine ever
// touches them outside the Run loop.
type Worker struct {
	cfg              Config
	genesisPublicKey ident.PublicKey

	// addressToPublicKey resolves a selector draw's address back to the
	// public key spec §4.5/§8 scenario 6 define GetSelectionDraws'
	// output as: an address is a one-way H(pubkey) fold, so the worker
	// is the only place that still holds both sides of that mapping.
	addressToPublicKey map[ident.Address]ident.PublicKey

	blockDB  blockgraph.Graph
	poolC    pool.Pool
	protoOut protocol.Outbound
	protoIn  <-chan protocol.Event
	store    storage.Storage // nil when no archival tier is configured

	selector *selection.Selector
	timing   *slot.Timing
	clock    *clockcmp.Compensator
	metrics  *metrics.WorkerMetrics

	previousSlot       *slot.Slot
	nextSlot           slot.Slot
	wishlist           mapset.Set
	latestFinalPeriods []uint64

	commandCh    chan command.Command
	managementCh chan struct{}

	// statsExclusionSetSize / statsLastBlockCreationNanos back worker.Stats,
	// the SUPPLEMENTED FEATURES stats snapshot; read via atomic since
	// Stats() may be called from a different goroutine than Run.
	statsExclusionSetSize       int64
	statsLastBlockCreationNanos int64
}

// New constructs a Worker. blockDB, poolC and protoOut are required;
// store and clock may be nil (no archival tier / system clock with no
// compensation, respectively). The command channel and management
// channel are created internally and exposed via Commands()/Shutdown().
func New(cfg Config, blockDB blockgraph.Graph, poolC pool.Pool, protoOut protocol.Outbound, protoIn <-chan protocol.Event, store storage.Storage, clock *clockcmp.Compensator, m *metrics.WorkerMetrics) (*Worker, error) {
	if len(cfg.Nodes) == 0 || cfg.LocalNodeIndex < 0 || cfg.LocalNodeIndex >= len(cfg.Nodes) {
		return nil, werrors.ErrMissingKey
	}
	if cfg.GenesisPrivateKey.Bytes() == nil {
		return nil, werrors.ErrMissingKey
	}

	genesisPub := ident.DerivePublicKey(cfg.GenesisPrivateKey)
	genesisAddr := ident.AddressFromPublicKey(genesisPub)

	addressToPublicKey := map[ident.Address]ident.PublicKey{genesisAddr: genesisPub}
	participants := make([]selection.Participant, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		addr := ident.AddressFromPublicKey(n.Public)
		participants[i] = selection.Participant{
			Address: addr,
			Weight:  n.Weight,
		}
		addressToPublicKey[addr] = n.Public
	}
	sel := selection.New(selection.Config{
		Seed:           cfg.SelectionSeed,
		Participants:   participants,
		ThreadCount:    cfg.ThreadCount,
		GenesisAddress: genesisAddr,
		DrawCacheSize:  cfg.DrawCacheSize,
	})

	// The Timing collaborator's own ClockCompensation field is the spec
	// §3 clock_compensation value; it is refreshed from the Compensator
	// before every deadline computation (refreshCompensation), so the
	// Compensator's clock is not also wired in as Timing's WallClock —
	// that would apply the offset twice.
	timing := slot.NewTiming(cfg.ThreadCount, cfg.SlotDuration, cfg.GenesisTimestamp, nil)
	if clock != nil {
		timing.ClockCompensation = clock.Compensation()
	}

	previous, next, err := timing.InitialSlots()
	if err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:                cfg,
		genesisPublicKey:   genesisPub,
		addressToPublicKey: addressToPublicKey,
		blockDB:            blockDB,
		poolC:              poolC,
		protoOut:           protoOut,
		protoIn:            protoIn,
		store:              store,
		selector:           sel,
		timing:             timing,
		clock:              clock,
		metrics:            m,
		previousSlot:       previous,
		nextSlot:           next,
		wishlist:           mapset.NewSet(),
		latestFinalPeriods: make([]uint64, cfg.ThreadCount),
		commandCh:          make(chan command.Command, 16),
		managementCh:       make(chan struct{}),
	}
	return w, nil
}

// refreshCompensation pulls the latest compensation reading from the
// Compensator into the Timing collaborator, called once per tick so
// clock-drift observations made between ticks take effect on the next
// deadline computation.
func (w *Worker) refreshCompensation() {
	if w.clock != nil {
		w.timing.ClockCompensation = w.clock.Compensation()
	}
}

// Commands returns the send side of the command channel, handed to local
// API layers (e.g. httpapi) that don't call Worker's convenience methods
// directly.
func (w *Worker) Commands() chan<- command.Command { return w.commandCh }

// Shutdown signals the Run loop to exit at its next iteration.
func (w *Worker) Shutdown() {
	close(w.managementCh)
}

// Run multiplexes the four input streams in one select, per spec §2/§5:
// slot timer, command channel, protocol event channel, management
// channel. It returns when the management channel is closed (graceful
// shutdown) or when a fatal collaborator/communication error occurs.
func (w *Worker) Run() error {
	// Mirror the original's run_loop: tell the pool the worker's starting
	// slot and final-period state before the first tick, not just on
	// subsequent changes — otherwise a real pool has no current slot or
	// final periods to rank against until the first timer fires.
	if w.previousSlot != nil {
		w.poolC.UpdateCurrentSlot(*w.previousSlot)
	}
	w.poolC.UpdateLatestFinalPeriods(w.latestFinalPeriods)

	deadline := w.timing.ArmDeadline(w.nextSlot)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := w.onSlotTick(); err != nil {
				return err
			}
			w.refreshCompensation()
			timer.Reset(time.Until(w.timing.ArmDeadline(w.nextSlot)))

		case cmd := <-w.commandCh:
			w.handleCommand(cmd)

		case ev, ok := <-w.protoIn:
			if !ok {
				return werrors.Collaborator("protocol", werrors.ErrCommunication)
			}
			if err := w.handleProtocolEvent(ev); err != nil {
				return err
			}

		case <-w.managementCh:
			log.Info("worker shutting down")
			return nil
		}
	}
}

func (w *Worker) localAddress() ident.Address {
	return ident.AddressFromPublicKey(w.cfg.localNode().Public)
}

// publicKeyForAddress resolves a selector draw's address back to its
// public key; every address the selector can ever return (genesis
// address plus every configured node's address) is present in the map
// built at construction.
func (w *Worker) publicKeyForAddress(addr ident.Address) ident.PublicKey {
	return w.addressToPublicKey[addr]
}

func equalUint64Slices(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func recordBlockCreationDuration(w *Worker, d time.Duration) {
	atomic.StoreInt64(&w.statsLastBlockCreationNanos, int64(d))
}

func recordExclusionSetSize(w *Worker, n int) {
	atomic.StoreInt64(&w.statsExclusionSetSize, int64(n))
}
