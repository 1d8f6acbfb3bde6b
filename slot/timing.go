package slot

import (
	"time"

	"github.com/liveevilll/massa/werrors"
	"github.com/liveevilll/massa/xlog"
)

var log = xlog.Root.New("slot")

// WallClock reports the current wall-clock time. It is satisfied by the
// adapter clockcmp.Compensator.AsWallClock returns, kept as a narrow
// interface here so package slot does
// not depend on clockcmp (leaf package, per the dependency order in
// spec §2).
type WallClock interface {
	Now() time.Time
}

// systemClock is the zero-value default: time.Now. Tests substitute a
// fixed or stepped clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Timing converts between slots and timestamps for a fixed protocol
// configuration, and arms a deadline for the next slot, compensating
// for measured clock drift exactly as spec §4.1 describes.
type Timing struct {
	ThreadCount      uint8
	SlotDuration     time.Duration
	GenesisTimestamp time.Time
	Clock            WallClock

	// ClockCompensation is a signed offset added to local monotonic
	// time before it is compared against slot timestamps, per §4.1/§9.
	ClockCompensation time.Duration
}

// NewTiming constructs a Timing with the system wall clock if clock is nil.
func NewTiming(threadCount uint8, slotDuration time.Duration, genesis time.Time, clock WallClock) *Timing {
	if clock == nil {
		clock = systemClock{}
	}
	return &Timing{
		ThreadCount:      threadCount,
		SlotDuration:     slotDuration,
		GenesisTimestamp: genesis,
		Clock:            clock,
	}
}

// Timestamp returns the canonical wall-clock instant of s:
// genesis + (period*T + thread) * slotDuration.
func (t *Timing) Timestamp(s Slot) time.Time {
	offset := s.Period*uint64(t.ThreadCount) + uint64(s.Thread)
	return t.GenesisTimestamp.Add(time.Duration(offset) * t.SlotDuration)
}

// EstimateInstant converts a logical slot timestamp into a local
// monotonic deadline, by subtracting the clock compensation (a positive
// compensation means the local clock is believed to run behind
// consensus time, so the local deadline is earlier).
func (t *Timing) EstimateInstant(ts time.Time) time.Time {
	return ts.Add(-t.ClockCompensation)
}

// CurrentLatestBlockSlot returns the largest slot whose timestamp is at
// or before now+compensation, or (Slot{}, false) if now is still before
// genesis.
func (t *Timing) CurrentLatestBlockSlot(now time.Time) (Slot, bool) {
	adjusted := now.Add(t.ClockCompensation)
	if adjusted.Before(t.GenesisTimestamp) {
		return Slot{}, false
	}
	elapsed := adjusted.Sub(t.GenesisTimestamp)
	totalSlots := uint64(elapsed / t.SlotDuration)
	period := totalSlots / uint64(t.ThreadCount)
	thread := uint8(totalSlots % uint64(t.ThreadCount))
	return Slot{Period: period, Thread: thread}, true
}

// InitialSlots computes previousSlot/nextSlot at worker construction, per
// §4.1: previousSlot = CurrentLatestBlockSlot(now); nextSlot =
// previousSlot.Next(), or (0,0) if still before genesis.
func (t *Timing) InitialSlots() (previous *Slot, next Slot, err error) {
	now := t.Clock.Now()
	prev, ok := t.CurrentLatestBlockSlot(now)
	if !ok {
		return nil, Slot{Period: 0, Thread: 0}, nil
	}
	n, err := prev.Next(t.ThreadCount)
	if err != nil {
		return nil, Slot{}, werrors.ErrSlotOverflow
	}
	return &prev, n, nil
}

// ArmDeadline returns the local deadline at which the timer for s should
// next fire, warning (per the original's clock-drift tracking, carried
// forward in SPEC_FULL.md's Supplemented Features) if the computed
// deadline already lies in the past by more than one slot duration —
// a sign the worker is falling behind rather than merely catching up by
// one tick.
func (t *Timing) ArmDeadline(s Slot) time.Time {
	deadline := t.EstimateInstant(t.Timestamp(s))
	if behind := t.Clock.Now().Sub(deadline); behind > t.SlotDuration {
		log.Warn("slot timer arming in the past", "slot", s.String(), "behind", behind)
	}
	return deadline
}
