package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAmountRejectsNegative(t *testing.T) {
	_, err := NewAmount(-1)
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestNewAmountAcceptsZeroAndPositive(t *testing.T) {
	a, err := NewAmount(0)
	require.NoError(t, err)
	require.Equal(t, int64(0), a.Int64())

	a, err = NewAmount(42)
	require.NoError(t, err)
	require.Equal(t, int64(42), a.Int64())
}

func TestAmountAddSub(t *testing.T) {
	a := Amount(10)
	b := Amount(3)
	require.Equal(t, int64(13), a.Add(b).Int64())
	require.Equal(t, int64(7), a.Sub(b).Int64())
	// Sub may go negative (used transiently for fee computation).
	require.Equal(t, int64(-7), b.Sub(a).Int64())
}
