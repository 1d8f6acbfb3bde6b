package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	m := New()
	m.IncSlotTick()
	m.IncSlotTick()
	m.IncBlockCreated(3)
	m.IncBlockSkippedNotUs()
	m.IncBlockReceived()
	m.IncAttackDetected()

	snap := m.snapshot()
	require.EqualValues(t, 2, snap["slot_ticks"])
	require.EqualValues(t, 1, snap["blocks_created"])
	require.EqualValues(t, 3, snap["operations_included"])
	require.EqualValues(t, 1, snap["blocks_skipped_not_us"])
	require.EqualValues(t, 1, snap["blocks_received"])
	require.EqualValues(t, 1, snap["attacks_detected"])
}

func TestHostStatsHasExpectedKeys(t *testing.T) {
	stats := hostStats()
	for _, k := range []string{"mem_used", "mem_free", "load1", "load5", "load15"} {
		require.Contains(t, stats, k)
	}
}
