package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFromHexRoundTrip(t *testing.T) {
	h := Hash256{1, 2, 3, 4}
	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestHashFromHexRejectsWrongLength(t *testing.T) {
	_, err := HashFromHex("abcd")
	require.Error(t, err)
}

func TestLeadingZeroHexDigits(t *testing.T) {
	var h Hash256
	h[0] = 0x00
	h[1] = 0x12
	// hex: "0012..." -> 2 leading zero hex digits (0, 0, then 1 stops it)
	require.Equal(t, 2, h.LeadingZeroHexDigits())

	var allZero Hash256
	require.Equal(t, 64, allZero.LeadingZeroHexDigits())
}

func TestIsZero(t *testing.T) {
	var h Hash256
	require.True(t, h.IsZero())
	h[0] = 1
	require.False(t, h.IsZero())
}

func TestHashJSONRoundTrip(t *testing.T) {
	h := Hash256{9, 9, 9}
	data, err := h.MarshalJSON()
	require.NoError(t, err)

	var out Hash256
	require.NoError(t, out.UnmarshalJSON(data))
	require.Equal(t, h, out)
}
