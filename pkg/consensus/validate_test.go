package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/codec"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

func testParams() Params {
	p := DefaultParams()
	p.GenesisDifficulty = 1 // keep nonce search fast in tests
	return p
}

func mustPub(t *testing.T) (codec.PrivateKey, types.PublicKey) {
	t.Helper()
	priv, err := codec.GeneratePrivateKey()
	require.NoError(t, err)
	pub, err := priv.PublicKey()
	require.NoError(t, err)
	return priv, pub
}

func buildGenesis(t *testing.T, p Params, recipient types.PublicKey, amount int64) *block.Block {
	t.Helper()
	funding, err := tx.New(nil, []tx.Output{{Amount: types.Amount(amount), Recipient: recipient}}, p.GenesisTimestamp)
	require.NoError(t, err)
	genesis, err := block.New(0, p.GenesisTimestamp, []block.Transaction{funding}, "0", p.GenesisDifficulty)
	require.NoError(t, err)
	return genesis
}

func TestValidateChainAcceptsGenesisAlone(t *testing.T) {
	p := testParams()
	_, pub := mustPub(t)
	genesis := buildGenesis(t, p, pub, 1000)

	_, err := ValidateChain([]*block.Block{genesis}, p)
	require.NoError(t, err)
}

func TestValidateBlockAcceptsCoinbaseOnlyBlock(t *testing.T) {
	p := testParams()
	_, pub := mustPub(t)
	genesis := buildGenesis(t, p, pub, 1000)
	snapshot, err := ValidateChain([]*block.Block{genesis}, p)
	require.NoError(t, err)

	view := snapshotToView(snapshot)
	coinbaseOut := tx.Output{Amount: types.Amount(Reward(p, 1)), Recipient: pub}
	coinbase, err := tx.New(nil, []tx.Output{coinbaseOut}, genesis.Timestamp+1)
	require.NoError(t, err)

	next, err := block.New(1, genesis.Timestamp+1, []block.Transaction{coinbase}, genesis.Hash.String(), p.GenesisDifficulty)
	require.NoError(t, err)

	err = ValidateBlock(next, genesis, view, p)
	require.NoError(t, err)
}

func TestValidateBlockRejectsWrongParent(t *testing.T) {
	p := testParams()
	_, pub := mustPub(t)
	genesis := buildGenesis(t, p, pub, 1000)
	view := NewUtxoSnapshot()

	coinbaseOut := tx.Output{Amount: types.Amount(Reward(p, 1)), Recipient: pub}
	coinbase, err := tx.New(nil, []tx.Output{coinbaseOut}, genesis.Timestamp+1)
	require.NoError(t, err)
	next, err := block.New(1, genesis.Timestamp+1, []block.Transaction{coinbase}, "not-the-genesis-hash", p.GenesisDifficulty)
	require.NoError(t, err)

	err = ValidateBlock(next, genesis, view, p)
	require.ErrorIs(t, err, ErrWrongParent)
}

func TestValidateBlockRejectsFutureTimestamp(t *testing.T) {
	p := testParams()
	_, pub := mustPub(t)
	genesis := buildGenesis(t, p, pub, 1000)
	view := NewUtxoSnapshot()

	coinbaseOut := tx.Output{Amount: types.Amount(Reward(p, 1)), Recipient: pub}
	farFuture := time.Now().Unix() + p.MaxTimestampDrift + 3600
	coinbase, err := tx.New(nil, []tx.Output{coinbaseOut}, farFuture)
	require.NoError(t, err)
	next, err := block.New(1, farFuture, []block.Transaction{coinbase}, genesis.Hash.String(), p.GenesisDifficulty)
	require.NoError(t, err)

	err = ValidateBlock(next, genesis, view, p)
	require.ErrorIs(t, err, ErrTimestampFuture)
}

func TestValidateBlockRejectsBadCoinbaseAmount(t *testing.T) {
	p := testParams()
	_, pub := mustPub(t)
	genesis := buildGenesis(t, p, pub, 1000)
	view := NewUtxoSnapshot()

	wrongOut := tx.Output{Amount: types.Amount(Reward(p, 1) + 1), Recipient: pub}
	coinbase, err := tx.New(nil, []tx.Output{wrongOut}, genesis.Timestamp+1)
	require.NoError(t, err)
	next, err := block.New(1, genesis.Timestamp+1, []block.Transaction{coinbase}, genesis.Hash.String(), p.GenesisDifficulty)
	require.NoError(t, err)

	err = ValidateBlock(next, genesis, view, p)
	require.ErrorIs(t, err, ErrBadCoinbaseAmount)
}

func TestValidateBlockCreditsFeesToCoinbase(t *testing.T) {
	p := testParams()
	alicePriv, alicePub := mustPub(t)
	_, bobPub := mustPub(t)
	_, minerPub := mustPub(t)

	genesis := buildGenesis(t, p, alicePub, 1000)
	snapshot, err := ValidateChain([]*block.Block{genesis}, p)
	require.NoError(t, err)
	view := snapshotToView(snapshot)

	spend, err := tx.New([]tx.Input{{PrevTxID: genesis.Transactions[0].TxID(), PrevOutputIndex: 0}},
		[]tx.Output{{Amount: 900, Recipient: bobPub}}, genesis.Timestamp+1)
	require.NoError(t, err)
	require.NoError(t, spend.Sign(alicePriv))

	fee := int64(1000 - 900)
	coinbaseOut := tx.Output{Amount: types.Amount(Reward(p, 1) + fee), Recipient: minerPub}
	coinbase, err := tx.New(nil, []tx.Output{coinbaseOut}, genesis.Timestamp+1)
	require.NoError(t, err)

	next, err := block.New(1, genesis.Timestamp+1, []block.Transaction{coinbase, spend}, genesis.Hash.String(), p.GenesisDifficulty)
	require.NoError(t, err)

	require.NoError(t, ValidateBlock(next, genesis, view, p))
}

// snapshotToView seeds a fresh UtxoSnapshot from a completed ValidateChain
// run, mirroring how chainstate.New seeds its live UtxoSet.
func snapshotToView(s *UtxoSnapshot) *UtxoSnapshot {
	fresh := NewUtxoSnapshot()
	for txID, outputs := range s.Entries() {
		for idx, out := range outputs {
			fresh.Put(txID, idx, out)
		}
	}
	return fresh
}
