// Package block implements the Block type and its mining loop (spec.md
// S4.3), grounded on the teacher repo's pkg/mining/miner.go nonce-search
// loop and pkg/types/block.go's header/body split, generalized from the
// teacher's compact-bits/merkle-root header to the spec's leading-hex-zero
// difficulty and flat transaction list (no merkle tree -- the spec commits
// full transactions into the header view directly).
package block

import (
	"fmt"

	"github.com/arjunv-dev/pochain/pkg/codec"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// Transaction is the narrow view Block needs of a transaction: enough to
// decide coinbase-ness, identify it, and fold it into the header view.
// spec.md S9's "cyclic import" design note calls for Block to depend on an
// abstract Transaction interface rather than the concrete tx.Transaction
// type; pkg/tx.Transaction satisfies this structurally.
type Transaction interface {
	IsCoinbase() bool
	TxID() types.Hash256
	WireView() interface{}
}

// Block is spec.md S3's Block. PreviousHash is a string rather than a
// types.Hash256 because the genesis block's previous_hash is the literal
// sentinel "0" (spec.md S6.3), not a 32-byte digest.
type Block struct {
	Index        uint64
	Timestamp    int64
	Transactions []Transaction
	PreviousHash string
	Difficulty   uint8
	Nonce        uint64
	Hash         types.Hash256
}

// New constructs a block and mines it immediately (spec.md S4.3: "if an
// explicit hash is supplied ... otherwise mine() is invoked"). Callers on
// the deserialization path should use FromParts instead, which trusts a
// supplied hash without running the search.
func New(index uint64, timestamp int64, transactions []Transaction, previousHash string, difficulty uint8) (*Block, error) {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: transactions,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
	}
	if err := b.Mine(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromParts builds a block from already-known fields, trusting the
// supplied hash as-is (the deserialization path spec.md S4.3 describes).
// Callers that need to check proof-of-work should call RecomputeHash.
func FromParts(index uint64, timestamp int64, transactions []Transaction, previousHash string, difficulty uint8, nonce uint64, hash types.Hash256) *Block {
	return &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: transactions,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
		Nonce:        nonce,
		Hash:         hash,
	}
}

// headerView builds the canonical view hashed for both mining and the
// Invariant B1 hash check: every field of Block except Hash itself.
func (b *Block) headerView() map[string]interface{} {
	txs := make([]interface{}, len(b.Transactions))
	for i, t := range b.Transactions {
		txs[i] = t.WireView()
	}
	return map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp,
		"transactions":  txs,
		"previous_hash": b.PreviousHash,
		"difficulty":    b.Difficulty,
		"nonce":         b.Nonce,
	}
}

// RecomputeHash recomputes doubleSHA256(serialize(header_view)) from the
// block's current fields, independent of whatever is stored in b.Hash.
// Used both by Mine and by consensus.ValidateBlock's Invariant B1 check.
func (b *Block) RecomputeHash() (types.Hash256, error) {
	data, err := codec.Serialize(b.headerView())
	if err != nil {
		return types.Hash256{}, fmt.Errorf("serialize header view: %w", err)
	}
	return codec.Hash(data), nil
}

// Mine runs spec.md S4.3's nonce search: increment Nonce from zero until
// the header view's digest has at least Difficulty leading hex-zero
// characters, then store it as Hash. Unbounded; the only way to stop a
// mine in progress is to abandon the goroutine running it (see
// pkg/mining's running flag for how the background miner supervises this).
func (b *Block) Mine() error {
	b.Nonce = 0
	for {
		h, err := b.RecomputeHash()
		if err != nil {
			return err
		}
		if h.LeadingZeroHexDigits() >= int(b.Difficulty) {
			b.Hash = h
			return nil
		}
		b.Nonce++
	}
}
