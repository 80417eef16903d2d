package consensus

import (
	"fmt"
	"time"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// UtxoView is everything ValidateBlock and ValidateChain need from a UTXO
// set snapshot: resolve an output, then mutate as transactions are
// applied in order. chainstate.UtxoSet satisfies this structurally; this
// package never imports chainstate, which is what keeps chainstate (which
// does import consensus, to delegate append_block's validation) from
// forming an import cycle.
type UtxoView interface {
	tx.UtxoLookup
	Put(txID types.Hash256, outputIndex uint32, out tx.Output)
	Delete(txID types.Hash256, outputIndex uint32)
}

// ValidateBlock implements spec.md S4.5's validate_block against a known
// tip: prev-hash/index linkage, proof-of-work, timestamp bounds, coinbase
// shape, and per-transaction verification against view, which is mutated
// in place as each transaction is applied (callers pass a snapshot, not
// the live set, so a failed validation never corrupts live state).
func ValidateBlock(b *block.Block, tip *block.Block, view UtxoView, p Params) error {
	if b.PreviousHash != tip.Hash.String() {
		return ErrWrongParent
	}
	if b.Index != tip.Index+1 {
		return ErrWrongIndex
	}
	if b.Timestamp < tip.Timestamp {
		return ErrTimestampRegressed
	}
	return validateBody(b, view, p, false)
}

// ValidateChain implements spec.md S4.5's validate_chain: walks the chain
// from genesis, replaying validateBody pairwise with the previous block
// in place of a fixed tip. Genesis (index 0) is exempt from the
// proof-of-work and reward checks; its coinbases are funding entries.
func ValidateChain(chain []*block.Block, p Params) (*UtxoSnapshot, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("chain is empty")
	}
	snapshot := NewUtxoSnapshot()
	for i, b := range chain {
		isGenesis := i == 0
		if !isGenesis {
			prev := chain[i-1]
			if b.PreviousHash != prev.Hash.String() {
				return nil, fmt.Errorf("block %d: %w", b.Index, ErrWrongParent)
			}
			if b.Index != prev.Index+1 {
				return nil, fmt.Errorf("block %d: %w", b.Index, ErrWrongIndex)
			}
			if b.Timestamp < prev.Timestamp {
				return nil, fmt.Errorf("block %d: %w", b.Index, ErrTimestampRegressed)
			}
		}
		if err := validateBody(b, snapshot, p, isGenesis); err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Index, err)
		}
	}
	return snapshot, nil
}

func validateBody(b *block.Block, view UtxoView, p Params, isGenesis bool) error {
	recomputed, err := b.RecomputeHash()
	if err != nil {
		return err
	}
	if recomputed != b.Hash {
		return ErrBadHash
	}
	if !isGenesis {
		if b.Hash.LeadingZeroHexDigits() < int(p.GenesisDifficulty) {
			return ErrInsufficientWork
		}
		if b.Difficulty < p.GenesisDifficulty {
			return ErrDifficultyTooLow
		}
		if b.Timestamp > time.Now().Unix()+p.MaxTimestampDrift {
			return ErrTimestampFuture
		}
	}
	if len(b.Transactions) < 1 {
		return ErrEmptyBlock
	}
	if !b.Transactions[0].IsCoinbase() {
		return ErrMissingCoinbase
	}

	var fees types.Amount
	for i, t := range b.Transactions[1:] {
		concrete, ok := t.(*tx.Transaction)
		if !ok {
			return fmt.Errorf("transaction %d: not a *tx.Transaction", i+1)
		}
		valid, fee, err := concrete.Verify(view)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i+1, err)
		}
		if !valid {
			return fmt.Errorf("transaction %d: rejected", i+1)
		}
		fees = fees.Add(fee)
		tx.Apply(view, concrete)
	}

	coinbase, ok := b.Transactions[0].(*tx.Transaction)
	if !ok {
		return fmt.Errorf("coinbase: not a *tx.Transaction")
	}
	if !isGenesis {
		if len(coinbase.Outputs) != 1 {
			return ErrCoinbaseOutputs
		}
		want := Reward(p, b.Index) + fees.Int64()
		if coinbase.Outputs[0].Amount.Int64() != want {
			return ErrBadCoinbaseAmount
		}
	}
	tx.Apply(view, coinbase)
	return nil
}

type utxoKey struct {
	txID        types.Hash256
	outputIndex uint32
}

// UtxoSnapshot is a standalone, map-backed UtxoView used to replay a
// chain from genesis during ValidateChain, independent of whatever
// concrete UTXO set type the caller's chain state keeps live. It carries
// no lock: callers that need one own their own synchronization.
type UtxoSnapshot struct {
	entries map[utxoKey]tx.Output
}

// NewUtxoSnapshot returns an empty snapshot.
func NewUtxoSnapshot() *UtxoSnapshot {
	return &UtxoSnapshot{entries: make(map[utxoKey]tx.Output)}
}

func (s *UtxoSnapshot) Get(txID types.Hash256, outputIndex uint32) (tx.Output, bool) {
	out, ok := s.entries[utxoKey{txID, outputIndex}]
	return out, ok
}

func (s *UtxoSnapshot) Put(txID types.Hash256, outputIndex uint32, out tx.Output) {
	s.entries[utxoKey{txID, outputIndex}] = out
}

func (s *UtxoSnapshot) Delete(txID types.Hash256, outputIndex uint32) {
	delete(s.entries, utxoKey{txID, outputIndex})
}

// Entries returns every remaining unspent output, keyed by transaction id
// and output index, for a caller that wants to seed a live UTXO set from
// the result of ValidateChain rather than walking the chain a second time.
func (s *UtxoSnapshot) Entries() map[types.Hash256]map[uint32]tx.Output {
	out := make(map[types.Hash256]map[uint32]tx.Output)
	for k, v := range s.entries {
		if out[k.txID] == nil {
			out[k.txID] = make(map[uint32]tx.Output)
		}
		out[k.txID][k.outputIndex] = v
	}
	return out
}
