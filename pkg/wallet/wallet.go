// Package wallet manages key material and spends a node's own UTXOs,
// adapted from the teacher's pkg/wallet (an address-keyed map of private
// keys plus a tracked UTXO set) to pochain's model, where a recipient is
// the opaque public key itself rather than a P2PKH address derived from
// a script -- so balance and coin selection query chain_state's UTXO set
// by public key instead of maintaining a separate local index.
package wallet

import (
	"fmt"
	"sync"

	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/codec"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// Wallet holds one keypair and knows how to spend outputs addressed to
// its public key, as reported by a UTXO set.
type Wallet struct {
	mu      sync.RWMutex
	private codec.PrivateKey
	public  types.PublicKey
}

// Generate creates a wallet backed by a freshly generated secp256k1 key.
func Generate() (*Wallet, error) {
	priv, err := codec.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return &Wallet{private: priv, public: pub}, nil
}

// PublicKey returns the wallet's recipient identity.
func (w *Wallet) PublicKey() types.PublicKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.public
}

// Balance sums every unspent output in set paying this wallet.
func (w *Wallet) Balance(set *chainstate.UtxoSet) types.Amount {
	w.mu.RLock()
	pub := w.public
	w.mu.RUnlock()

	var total types.Amount
	for _, owned := range set.FindByRecipient(pub) {
		total = total.Add(owned.Amount)
	}
	return total
}

// Send builds and signs a transaction paying amount to recipient,
// selecting this wallet's own unspent outputs from set as inputs and
// returning any leftover value to this wallet as a change output.
func (w *Wallet) Send(set *chainstate.UtxoSet, recipient types.PublicKey, amount types.Amount) (*tx.Transaction, error) {
	w.mu.RLock()
	pub := w.public
	priv := w.private
	w.mu.RUnlock()

	owned := set.FindByRecipient(pub)
	selected, total, err := selectCoins(owned, amount)
	if err != nil {
		return nil, err
	}

	inputs := make([]tx.Input, len(selected))
	for i, o := range selected {
		inputs[i] = tx.Input{PrevTxID: o.TxID, PrevOutputIndex: o.OutputIndex}
	}

	outputs := []tx.Output{{Amount: amount, Recipient: recipient}}
	if change := total.Sub(amount); change.Int64() > 0 {
		outputs = append(outputs, tx.Output{Amount: change, Recipient: pub})
	}

	t, err := tx.New(inputs, outputs, 0)
	if err != nil {
		return nil, err
	}
	if err := t.Sign(priv); err != nil {
		return nil, err
	}
	return t, nil
}

func selectCoins(owned []chainstate.Owned, amount types.Amount) ([]chainstate.Owned, types.Amount, error) {
	var selected []chainstate.Owned
	var total types.Amount
	for _, o := range owned {
		selected = append(selected, o)
		total = total.Add(o.Amount)
		if total.Int64() >= amount.Int64() {
			return selected, total, nil
		}
	}
	return nil, 0, fmt.Errorf("insufficient funds: have %d, need %d", total.Int64(), amount.Int64())
}
