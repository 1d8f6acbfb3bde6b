// Package clockcmp supplies the worker's notion of "how far our wall
// clock has drifted from the network", the clock_compensation input
// spec §4 threads through slot timing. It pairs a monotonic tick
// (github.com/aristanetworks/goarista/monotime, used the same way the
// teacher's p2p/discover and miner packages reach for a monotonic source
// to measure elapsed durations without wall-clock jumps) with
// time.Now(). Both readings are recorded on every Observe; the package
// does not compare them to detect a stepped OS clock.
package clockcmp

import (
	"sync"
	"time"

	"github.com/aristanetworks/goarista/monotime"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/xlog"
)

var log = xlog.Root.New("clockcmp")

// Compensator tracks the offset between the local wall clock and an
// externally reported reference time (e.g. a trusted peer's clock or an
// NTP round), exposing it as the Duration slot.Timing uses as its
// ClockCompensation (added to local time to get consensus time, and
// subtracted from slot timestamps by EstimateInstant).
type Compensator struct {
	mu           sync.Mutex
	compensation time.Duration
	lastMono     uint64
	lastWall     time.Time
}

// New returns a Compensator with zero initial compensation.
func New() *Compensator {
	return &Compensator{
		lastMono: monotime.Now(),
		lastWall: time.Now(),
	}
}

// Observe records a reference timestamp reported by an external source
// (e.g. a bootstrap peer) for the instant this call is made, updating the
// compensation to the difference between the reference and the local
// wall clock. A large, sudden shift is logged as a clock-drift warning,
// grounded on the slot Timing collaborator's clock_compensation input.
func (c *Compensator) Observe(reference time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local := time.Now()
	offset := reference.Sub(local)
	drift := offset - c.compensation
	if drift < 0 {
		drift = -drift
	}
	if drift > 5*time.Second {
		log.Warn("large clock drift observed", "previous", c.compensation, "updated", offset)
	}
	c.compensation = offset
	c.lastMono = monotime.Now()
	c.lastWall = local
}

// Compensation returns the current compensation duration: reference
// time minus local wall time at the last Observe.
func (c *Compensator) Compensation() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compensation
}

// MonotonicElapsed returns the monotonic duration elapsed since the last
// Observe call, immune to wall-clock adjustments — used to sanity-check
// that a slot timer fired after a plausible amount of real time passed
// rather than because the wall clock jumped forward.
func (c *Compensator) MonotonicElapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(monotime.Now()-c.lastMono) * time.Nanosecond
}

// AsWallClock adapts the Compensator into a slot.WallClock whose Now is
// the local wall time plus the current compensation. The worker does not
// install it as its Timing clock, since Timing applies ClockCompensation
// itself.
func (c *Compensator) AsWallClock() slot.WallClock {
	return compensatedClock{c: c}
}

type compensatedClock struct{ c *Compensator }

func (w compensatedClock) Now() time.Time {
	return time.Now().Add(w.c.Compensation())
}
