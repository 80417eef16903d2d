package tx

import "github.com/arjunv-dev/pochain/pkg/types"

// MutableUtxoView is a UtxoLookup that can also be mutated, the shape
// Apply needs. chainstate.UtxoSet and any validation-snapshot copy of it
// satisfy this structurally.
type MutableUtxoView interface {
	UtxoLookup
	Put(txID types.Hash256, outputIndex uint32, out Output)
	Delete(txID types.Hash256, outputIndex uint32)
}

// Apply implements spec.md S4.4's apply_tx: remove each input's spent
// output from view, then insert each of t's outputs under (t.ID, i). A
// pure function over an arbitrary view -- the same code path updates the
// live UTXO set on append_block and a throwaway snapshot during block
// validation or mempool selection.
func Apply(view MutableUtxoView, t *Transaction) {
	if !t.IsCoinbase() {
		for _, in := range t.Inputs {
			view.Delete(in.PrevTxID, in.PrevOutputIndex)
		}
	}
	for i, out := range t.Outputs {
		view.Put(t.ID, uint32(i), out)
	}
}
