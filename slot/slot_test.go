package slot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlotOrdering(t *testing.T) {
	a := Slot{Period: 0, Thread: 1}
	b := Slot{Period: 1, Thread: 0}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.True(t, a.Less(a) == false)
}

func TestNextWraps(t *testing.T) {
	s := Slot{Period: 0, Thread: 1}
	n, err := s.Next(2)
	require.NoError(t, err)
	require.Equal(t, Slot{Period: 1, Thread: 0}, n)
}

func TestNextOverflow(t *testing.T) {
	s := Slot{Period: math.MaxUint64, Thread: 1}
	_, err := s.Next(2)
	require.Error(t, err)
}

func TestNextOfPrevIsIdentity(t *testing.T) {
	// next(prev(S)) == S for non-boundary S.
	s := Slot{Period: 3, Thread: 0}
	prev := Slot{Period: 2, Thread: 1}
	n, err := prev.Next(2)
	require.NoError(t, err)
	require.Equal(t, s, n)
}

func TestCountMatchesIndexDelta(t *testing.T) {
	start := Slot{Period: 0, Thread: 0}
	end := Slot{Period: 1, Thread: 1}
	require.Equal(t, uint64(3), Count(start, end, 2))

	var visited []Slot
	err := Range(start, end, 2, func(s Slot) error {
		visited = append(visited, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, visited, 3)
	for i := 1; i < len(visited); i++ {
		require.True(t, visited[i-1].Less(visited[i]))
	}
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestCurrentLatestBlockSlotBeforeGenesis(t *testing.T) {
	genesis := time.Unix(1000, 0)
	ti := NewTiming(2, time.Second, genesis, fixedClock{t: time.Unix(500, 0)})
	_, ok := ti.CurrentLatestBlockSlot(ti.Clock.Now())
	require.False(t, ok)
}

func TestTimestampAndInverse(t *testing.T) {
	genesis := time.Unix(0, 0)
	ti := NewTiming(2, time.Second, genesis, fixedClock{})
	s := Slot{Period: 5, Thread: 1}
	ts := ti.Timestamp(s)
	require.Equal(t, genesis.Add(11*time.Second), ts)

	ti.Clock = fixedClock{t: ts.Add(10 * time.Millisecond)}
	got, ok := ti.CurrentLatestBlockSlot(ti.Clock.Now())
	require.True(t, ok)
	require.Equal(t, s, got)
}

func TestInitialSlots(t *testing.T) {
	genesis := time.Unix(0, 0)
	ti := NewTiming(2, time.Second, genesis, fixedClock{t: genesis.Add(2500 * time.Millisecond)})
	prev, next, err := ti.InitialSlots()
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, Slot{Period: 1, Thread: 0}, *prev)
	require.Equal(t, Slot{Period: 1, Thread: 1}, next)
}

func TestClockCompensationShiftsDeadline(t *testing.T) {
	genesis := time.Unix(0, 0)
	ti := NewTiming(1, time.Second, genesis, fixedClock{t: genesis})
	ti.ClockCompensation = 200 * time.Millisecond
	s := Slot{Period: 1, Thread: 0}
	deadline := ti.ArmDeadline(s)
	require.Equal(t, ti.Timestamp(s).Add(-200*time.Millisecond), deadline)
}
