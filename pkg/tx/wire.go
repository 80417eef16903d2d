package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/arjunv-dev/pochain/pkg/types"
)

// Wire is the JSON-over-the-wire and on-disk form of a transaction
// (spec.md S6.2). It intentionally differs from the struct used for the
// signing digest: the digest is computed from a hand-built canonical view
// (tx.go's signableView), never from this struct -- receivers must
// recompute the digest from that view, not trust the wire bytes.
type Wire struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Inputs    []WireInput `json:"inputs"`
	Outputs   []WireOutput `json:"outputs"`
}

type WireInput struct {
	TxID        string  `json:"tx_id"`
	OutputIndex uint32  `json:"output_index"`
	Signature   *string `json:"signature"`
}

type WireOutput struct {
	Amount             int64  `json:"amount"`
	RecipientPublicKey string `json:"recipient_public_key"`
}

// ToWire renders t in its wire form.
func (t *Transaction) ToWire() Wire {
	w := Wire{
		ID:        t.ID.String(),
		Timestamp: t.Timestamp,
		Inputs:    make([]WireInput, len(t.Inputs)),
		Outputs:   make([]WireOutput, len(t.Outputs)),
	}
	for i, in := range t.Inputs {
		wi := WireInput{TxID: in.PrevTxID.String(), OutputIndex: in.PrevOutputIndex}
		if in.Signature != nil {
			s := hex.EncodeToString(in.Signature)
			wi.Signature = &s
		}
		w.Inputs[i] = wi
	}
	for i, out := range t.Outputs {
		w.Outputs[i] = WireOutput{
			Amount:             out.Amount.Int64(),
			RecipientPublicKey: string(out.Recipient.PEM()),
		}
	}
	return w
}

// FromWire parses a wire form back into a Transaction, recomputing the id
// from the signable view rather than trusting the wire "id" field, and
// failing if the recomputed id disagrees with it.
func FromWire(w Wire) (*Transaction, error) {
	inputs := make([]Input, len(w.Inputs))
	for i, wi := range w.Inputs {
		id, err := types.HashFromHex(wi.TxID)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		in := Input{PrevTxID: id, PrevOutputIndex: wi.OutputIndex}
		if wi.Signature != nil {
			sig, err := hex.DecodeString(*wi.Signature)
			if err != nil {
				return nil, fmt.Errorf("input %d: invalid signature hex: %w", i, err)
			}
			in.Signature = sig
		}
		inputs[i] = in
	}

	outputs := make([]Output, len(w.Outputs))
	for i, wo := range w.Outputs {
		amount, err := types.NewAmount(wo.Amount)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		recipient, err := types.ParsePublicKeyPEM([]byte(wo.RecipientPublicKey))
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outputs[i] = Output{Amount: amount, Recipient: recipient}
	}

	t := &Transaction{Inputs: inputs, Outputs: outputs, Timestamp: w.Timestamp}
	id, err := t.computeID()
	if err != nil {
		return nil, err
	}
	if want, err := types.HashFromHex(w.ID); err == nil && want != id {
		return nil, fmt.Errorf("wire id %s does not match recomputed id %s", w.ID, id)
	}
	t.ID = id
	return t, nil
}

// MarshalJSON satisfies json.Marshaler via the wire form.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToWire())
}

// UnmarshalJSON satisfies json.Unmarshaler via the wire form.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := FromWire(w)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
