package tx

import (
	"fmt"

	"github.com/arjunv-dev/pochain/pkg/codec"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// UtxoLookup resolves a spent-output reference against some view of the
// UTXO set. chainstate.UtxoSet and any point-in-time snapshot of it
// satisfy this interface, which is how Verify stays agnostic to whether
// it's checking against the live set or a mining/validation copy
// (spec.md S9's "deep copies for validation snapshots").
type UtxoLookup interface {
	Get(txID types.Hash256, outputIndex uint32) (Output, bool)
}

// Verify implements spec.md S4.2's verify contract: a coinbase is valid
// with zero fee and no signature checks; otherwise every input must
// resolve in view, every resolved output must be non-negative, every
// signature must check out against the resolved recipient key, outputs
// must be non-negative and not exceed inputs, and the result is
// (true, input_sum-output_sum).
func (t *Transaction) Verify(view UtxoLookup) (bool, types.Amount, error) {
	if t.IsCoinbase() {
		return true, 0, nil
	}

	digest, err := t.SigningDigest()
	if err != nil {
		return false, 0, err
	}

	var inputSum types.Amount
	for _, in := range t.Inputs {
		resolved, ok := view.Get(in.PrevTxID, in.PrevOutputIndex)
		if !ok {
			return false, 0, fmt.Errorf("%w: %s:%d", ErrUtxoMissing, in.PrevTxID, in.PrevOutputIndex)
		}
		if resolved.Amount.Int64() < 0 {
			return false, 0, fmt.Errorf("%w: %s:%d", ErrNegativeAmount, in.PrevTxID, in.PrevOutputIndex)
		}
		inputSum = inputSum.Add(resolved.Amount)
		if !codec.Verify(resolved.Recipient, digest, in.Signature) {
			return false, 0, fmt.Errorf("%w: input %s:%d", ErrBadSignature, in.PrevTxID, in.PrevOutputIndex)
		}
	}

	var outputSum types.Amount
	for i, out := range t.Outputs {
		if out.Amount.Int64() < 0 {
			return false, 0, fmt.Errorf("%w: output %d", ErrNegativeOutput, i)
		}
		outputSum = outputSum.Add(out.Amount)
	}
	if outputSum.Int64() < 0 {
		return false, 0, ErrNegativeOutput
	}

	if inputSum.Int64() < outputSum.Int64() {
		return false, 0, ErrValueCreation
	}

	return true, inputSum.Sub(outputSum), nil
}
