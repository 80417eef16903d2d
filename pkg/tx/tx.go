// Package tx implements the transaction data model and verification rules
// of spec.md S4.2, grounded on the teacher repo's pkg/transaction and
// pkg/types (Transaction/TxInput/TxOutput), generalized from the teacher's
// scripted P2PKH model to the spec's single-recipient-pubkey model (no
// script language -- spec.md S1 Non-goals).
package tx

import (
	"fmt"
	"time"

	"github.com/arjunv-dev/pochain/pkg/codec"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// Input is a reference to a previously created output, optionally signed.
type Input struct {
	PrevTxID        types.Hash256
	PrevOutputIndex uint32
	Signature       []byte // nil for an unsigned input or a coinbase
}

// Output is a payment of Amount to Recipient, immutable once created.
type Output struct {
	Amount    types.Amount
	Recipient types.PublicKey
}

// Transaction is spec.md S3's Transaction: inputs, outputs, a timestamp,
// and an id that is a pure function of the signable view (inputs minus
// signatures, outputs, timestamp) -- Invariant T1. Mutating a signature
// therefore never changes ID (the malleability guarantee spec.md S4.2
// calls out), since signatures are excluded from the view that is hashed.
type Transaction struct {
	Inputs    []Input
	Outputs   []Output
	Timestamp int64
	ID        types.Hash256
}

// New constructs a Transaction and computes its id from the signable view.
// If timestamp is zero, now() is used.
func New(inputs []Input, outputs []Output, timestamp int64) (*Transaction, error) {
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	t := &Transaction{Inputs: inputs, Outputs: outputs, Timestamp: timestamp}
	id, err := t.computeID()
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// IsCoinbase reports whether t is a coinbase transaction: zero inputs
// (spec.md S3 Invariant T2).
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 0
}

// TxID returns the transaction id. Exposed as a method rather than direct
// field access so *Transaction satisfies block.Transaction, the narrow
// interface pkg/block uses to stay decoupled from this concrete type.
func (t *Transaction) TxID() types.Hash256 {
	return t.ID
}

// WireView returns the JSON-serializable wire form used both for on-disk
// persistence and as the per-transaction element of a block's header view
// (spec.md S4.3's header_view embeds full transactions, signatures
// included, not a merkle digest of them).
func (t *Transaction) WireView() interface{} {
	return t.ToWire()
}

// signableView builds the canonical view hashed for both the tx id
// (Invariant T1) and the signing digest: inputs without signatures,
// outputs, and the timestamp. Built as explicit maps/slices of
// interface{} rather than marshaling the struct directly so codec.Serialize
// sorts every nesting level's keys the way spec.md S4.1 requires.
func (t *Transaction) signableView() map[string]interface{} {
	inputs := make([]interface{}, len(t.Inputs))
	for i, in := range t.Inputs {
		inputs[i] = map[string]interface{}{
			"prev_tx_id":        in.PrevTxID.String(),
			"prev_output_index": in.PrevOutputIndex,
		}
	}
	outputs := make([]interface{}, len(t.Outputs))
	for i, out := range t.Outputs {
		outputs[i] = map[string]interface{}{
			"amount":    out.Amount.Int64(),
			"recipient": string(out.Recipient.PEM()),
		}
	}
	return map[string]interface{}{
		"inputs":    inputs,
		"outputs":   outputs,
		"timestamp": t.Timestamp,
	}
}

func (t *Transaction) computeID() (types.Hash256, error) {
	b, err := codec.Serialize(t.signableView())
	if err != nil {
		return types.Hash256{}, fmt.Errorf("serialize signable view: %w", err)
	}
	return codec.Hash(b), nil
}

// SigningDigest returns the digest that Sign/Verify operate over: the
// double-SHA-256 of the signable view (spec.md S4.2). It is identical to
// the transaction id by construction -- both are defined over the same
// view -- but is exposed separately so call sites read as "the digest we
// sign", not "we happen to sign the id".
func (t *Transaction) SigningDigest() (types.Hash256, error) {
	return t.computeID()
}

// Sign signs every input of t with priv. This assumes a single owning key
// across all inputs, which matches every signing scenario spec.md S8
// describes (a wallet spends its own UTXOs); a transaction mixing inputs
// from distinct keys should sign each Input individually via SignInput
// instead.
func (t *Transaction) Sign(priv codec.PrivateKey) error {
	digest, err := t.SigningDigest()
	if err != nil {
		return err
	}
	sig := priv.Sign(digest)
	for i := range t.Inputs {
		t.Inputs[i].Signature = sig
	}
	return nil
}

// SignInput signs a single input with priv, leaving the others untouched.
func (t *Transaction) SignInput(index int, priv codec.PrivateKey) error {
	if index < 0 || index >= len(t.Inputs) {
		return fmt.Errorf("input index %d out of range", index)
	}
	digest, err := t.SigningDigest()
	if err != nil {
		return err
	}
	t.Inputs[index].Signature = priv.Sign(digest)
	return nil
}
