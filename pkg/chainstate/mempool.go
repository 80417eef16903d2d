package chainstate

import (
	"strconv"

	"github.com/arjunv-dev/pochain/pkg/tx"
)

// mempoolEntry pairs a pending transaction with the data ChainState needs
// to prioritize it: its fee (for Miner's fee-descending sort, spec.md
// S4.6) and the time it was admitted. TX_EXPIRY_SECONDS eviction ages an
// entry by its transaction's own timestamp, not by ReceivedAt, so the age
// survives a reload from mempool.json. Grounded on the teacher's mempool.Entry, which carried the
// same two fields alongside a fee-rate the script-less model has no use
// for.
type mempoolEntry struct {
	Tx         *tx.Transaction
	Fee        int64
	ReceivedAt int64
}

// lockedOutputs derives spec.md S4.4's "locked set": every (tx_id,
// output_index) consumed by a transaction already sitting in the
// mempool. Computed on demand from current mempool contents, as spec.md
// requires, rather than maintained as separate state that could drift.
func lockedOutputs(mempool map[string]*mempoolEntry, excluding string) map[string]bool {
	locked := make(map[string]bool)
	for id, entry := range mempool {
		if id == excluding {
			continue
		}
		for _, in := range entry.Tx.Inputs {
			locked[in.PrevTxID.String()+":"+strconv.FormatUint(uint64(in.PrevOutputIndex), 10)] = true
		}
	}
	return locked
}
