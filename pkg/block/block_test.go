package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunv-dev/pochain/pkg/types"
)

// fakeTx is a minimal block.Transaction for tests that don't need real
// signature verification, keeping pkg/block's tests independent of pkg/tx.
type fakeTx struct {
	coinbase bool
	id       types.Hash256
}

func (f fakeTx) IsCoinbase() bool        { return f.coinbase }
func (f fakeTx) TxID() types.Hash256     { return f.id }
func (f fakeTx) WireView() interface{}   { return map[string]interface{}{"id": f.id.String()} }

func TestMineProducesHashMeetingDifficulty(t *testing.T) {
	b, err := New(1, 1_700_000_100, []Transaction{fakeTx{coinbase: true, id: types.Hash256{1}}}, "0", 2)
	require.NoError(t, err)
	require.GreaterOrEqual(t, b.Hash.LeadingZeroHexDigits(), 2)
}

func TestRecomputeHashMatchesMinedHash(t *testing.T) {
	b, err := New(1, 1_700_000_100, []Transaction{fakeTx{coinbase: true, id: types.Hash256{2}}}, "0", 1)
	require.NoError(t, err)

	recomputed, err := b.RecomputeHash()
	require.NoError(t, err)
	require.Equal(t, b.Hash, recomputed)
}

func TestRecomputeHashChangesWithNonce(t *testing.T) {
	b, err := New(1, 1_700_000_100, []Transaction{fakeTx{coinbase: true, id: types.Hash256{3}}}, "0", 1)
	require.NoError(t, err)

	original, err := b.RecomputeHash()
	require.NoError(t, err)

	b.Nonce++
	mutated, err := b.RecomputeHash()
	require.NoError(t, err)
	require.NotEqual(t, original, mutated)
}

func TestFromPartsTrustsSuppliedHash(t *testing.T) {
	var hash types.Hash256
	hash[0] = 0xab
	b := FromParts(5, 1_700_000_200, []Transaction{fakeTx{coinbase: true, id: types.Hash256{4}}}, "deadbeef", 0, 99, hash)
	require.Equal(t, uint64(99), b.Nonce)
	require.Equal(t, hash, b.Hash)
}
