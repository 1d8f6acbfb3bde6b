package clockcmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveUpdatesCompensation(t *testing.T) {
	c := New()
	require.Equal(t, time.Duration(0), c.Compensation())

	ahead := time.Now().Add(10 * time.Second)
	c.Observe(ahead)
	require.Greater(t, c.Compensation(), time.Duration(0))
}

func TestAsWallClockAppliesCompensation(t *testing.T) {
	c := New()
	c.Observe(time.Now().Add(1 * time.Hour))

	wc := c.AsWallClock()
	require.WithinDuration(t, time.Now().Add(1*time.Hour), wc.Now(), 2*time.Second)
}

func TestMonotonicElapsedIsNonNegative(t *testing.T) {
	c := New()
	time.Sleep(time.Millisecond)
	require.GreaterOrEqual(t, c.MonotonicElapsed(), time.Duration(0))
}
