package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

func TestGenerateProducesDistinctWallets(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	require.False(t, a.PublicKey().Equal(b.PublicKey()))
}

func TestBalanceSumsOwnedOutputs(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()

	fundingID := types.Hash256{1}
	set.Put(fundingID, 0, tx.Output{Amount: 60, Recipient: w.PublicKey()})
	set.Put(fundingID, 1, tx.Output{Amount: 40, Recipient: w.PublicKey()})

	require.Equal(t, int64(100), w.Balance(set).Int64())
}

func TestBalanceIgnoresOtherRecipients(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 100, Recipient: other.PublicKey()})

	require.Equal(t, int64(0), w.Balance(set).Int64())
}

func TestSendSelectsCoinsAndReturnsChange(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 100, Recipient: w.PublicKey()})

	txn, err := w.Send(set, recipient.PublicKey(), 60)
	require.NoError(t, err)
	require.Len(t, txn.Inputs, 1)
	require.Len(t, txn.Outputs, 2)
	require.Equal(t, int64(60), txn.Outputs[0].Amount.Int64())
	require.True(t, txn.Outputs[0].Recipient.Equal(recipient.PublicKey()))
	require.Equal(t, int64(40), txn.Outputs[1].Amount.Int64())
	require.True(t, txn.Outputs[1].Recipient.Equal(w.PublicKey()), "change must return to the sender")
}

func TestSendSpendsMultipleInputsWhenOneUtxoIsInsufficient(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 30, Recipient: w.PublicKey()})
	set.Put(types.Hash256{2}, 0, tx.Output{Amount: 30, Recipient: w.PublicKey()})

	txn, err := w.Send(set, recipient.PublicKey(), 50)
	require.NoError(t, err)
	require.Len(t, txn.Inputs, 2)
}

func TestSendWithExactAmountOmitsChangeOutput(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 50, Recipient: w.PublicKey()})

	txn, err := w.Send(set, recipient.PublicKey(), 50)
	require.NoError(t, err)
	require.Len(t, txn.Outputs, 1, "no change output when the selected coins exactly cover the amount")
}

func TestSendRejectsInsufficientFunds(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 10, Recipient: w.PublicKey()})

	_, err = w.Send(set, recipient.PublicKey(), 50)
	require.Error(t, err)
}

func TestSendProducesAValidSignature(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)
	set := chainstate.NewUtxoSet()
	set.Put(types.Hash256{1}, 0, tx.Output{Amount: 50, Recipient: w.PublicKey()})

	txn, err := w.Send(set, recipient.PublicKey(), 50)
	require.NoError(t, err)

	valid, fee, err := txn.Verify(set)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, int64(0), fee.Int64())
}

