package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/liveevilll/massa/ident"
	"github.com/stretchr/testify/require"
)

func addr(b byte) ident.Address {
	var a ident.Address
	a[0] = b
	return a
}

func TestMergeIsMonotonic(t *testing.T) {
	s := NewSnapshot(map[ident.Address]struct{}{addr(1): {}})
	s.SetBalance(addr(1), uint256.NewInt(10))

	extra := NewSnapshot(map[ident.Address]struct{}{addr(2): {}})
	extra.SetBalance(addr(2), uint256.NewInt(20))

	s.Merge(extra)
	require.Equal(t, uint256.NewInt(10), s.Balance(addr(1)))
	require.Equal(t, uint256.NewInt(20), s.Balance(addr(2)))
}

func TestTryApplyChangesAtomicRejection(t *testing.T) {
	s := NewSnapshot(map[ident.Address]struct{}{addr(1): {}})
	s.SetBalance(addr(1), uint256.NewInt(5))

	err := s.TryApplyChanges([]Change{
		{Address: addr(1), Delta: uint256.NewInt(100), Negative: true},
	})
	require.Error(t, err)
	// Balance unaffected by the rejected batch.
	require.Equal(t, uint256.NewInt(5), s.Balance(addr(1)))
}

func TestTryApplyChangesSucceeds(t *testing.T) {
	s := NewSnapshot(map[ident.Address]struct{}{addr(1): {}, addr(2): {}})
	s.SetBalance(addr(1), uint256.NewInt(100))
	s.SetBalance(addr(2), uint256.NewInt(0))

	err := s.TryApplyChanges([]Change{
		{Address: addr(1), Delta: uint256.NewInt(30), Negative: true},
		{Address: addr(2), Delta: uint256.NewInt(30), Negative: false},
	})
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(70), s.Balance(addr(1)))
	require.Equal(t, uint256.NewInt(30), s.Balance(addr(2)))
}

func TestUnknownAddressDefaultsToZero(t *testing.T) {
	s := NewSnapshot(nil)
	require.Equal(t, uint256.NewInt(0), s.Balance(addr(9)))
}
