package selection

import (
	"testing"

	"github.com/liveevilll/massa/ident"
	"github.com/liveevilll/massa/slot"
	"github.com/stretchr/testify/require"
)

func addr(b byte) ident.Address {
	var a ident.Address
	a[0] = b
	return a
}

func testConfig() Config {
	return Config{
		Seed: 7,
		Participants: []Participant{
			{Address: addr(1), Weight: 1},
			{Address: addr(2), Weight: 1},
			{Address: addr(3), Weight: 1},
		},
		ThreadCount:    2,
		GenesisAddress: addr(99),
	}
}

func TestDrawIsDeterministic(t *testing.T) {
	sel := New(testConfig())
	s := slot.Slot{Period: 4, Thread: 1}
	a := sel.Draw(s)
	b := sel.Draw(s)
	require.Equal(t, a, b)
}

func TestDrawStatelessWithRespectToCallOrder(t *testing.T) {
	sel1 := New(testConfig())
	sel2 := New(testConfig())

	s1 := slot.Slot{Period: 3, Thread: 0}
	s2 := slot.Slot{Period: 3, Thread: 1}

	// sel1 draws s1 then s2; sel2 draws s2 then s1.
	a1 := sel1.Draw(s1)
	a2 := sel1.Draw(s2)

	b2 := sel2.Draw(s2)
	b1 := sel2.Draw(s1)

	require.Equal(t, a1, b1)
	require.Equal(t, a2, b2)
}

func TestGenesisPeriodAlwaysGenesisAddress(t *testing.T) {
	sel := New(testConfig())
	draws, err := sel.Draws(slot.Slot{Period: 0, Thread: 0}, slot.Slot{Period: 1, Thread: 1})
	require.NoError(t, err)
	require.Len(t, draws, 3)
	for _, d := range draws[:2] {
		require.Equal(t, addr(99), d.Address)
	}
	require.NotEqual(t, addr(99), draws[2].Address)
}

func TestDrawsCountMatchesRange(t *testing.T) {
	sel := New(testConfig())
	start := slot.Slot{Period: 0, Thread: 0}
	end := slot.Slot{Period: 5, Thread: 0}
	draws, err := sel.Draws(start, end)
	require.NoError(t, err)
	require.Equal(t, int(slot.Count(start, end, 2)), len(draws))
}

func TestUniformWeightFallback(t *testing.T) {
	cfg := testConfig()
	for i := range cfg.Participants {
		cfg.Participants[i].Weight = 0
	}
	sel := New(cfg)
	require.Equal(t, uint64(len(cfg.Participants)), sel.total)
}
