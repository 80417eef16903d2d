package block

import (
	"encoding/json"
	"fmt"

	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// Wire is the JSON-over-the-wire and on-disk form of a block (spec.md
// S6.2). Unlike Transaction, the wire form here carries the hash computed
// at mine time directly -- receivers re-derive it via RecomputeHash to
// check proof-of-work rather than trusting it blindly (spec.md S4.5
// validate_block step 2).
type Wire struct {
	Index        uint64    `json:"index"`
	Timestamp    int64     `json:"timestamp"`
	PreviousHash string    `json:"previous_hash"`
	Difficulty   uint8     `json:"difficulty"`
	Nonce        uint64    `json:"nonce"`
	Hash         string    `json:"hash"`
	Transactions []tx.Wire `json:"transactions"`
}

// ToWire renders b in its wire form. The concrete *tx.Transaction elements
// already know how to render themselves; this only needs to unwrap the
// interface back to the concrete type to call ToWire on each.
func (b *Block) ToWire() (Wire, error) {
	w := Wire{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Difficulty:   b.Difficulty,
		Nonce:        b.Nonce,
		Hash:         b.Hash.String(),
		Transactions: make([]tx.Wire, len(b.Transactions)),
	}
	for i, t := range b.Transactions {
		concrete, ok := t.(*tx.Transaction)
		if !ok {
			return Wire{}, fmt.Errorf("transaction %d is not a *tx.Transaction", i)
		}
		w.Transactions[i] = concrete.ToWire()
	}
	return w, nil
}

// FromWire parses a wire-form block back into a Block, trusting the
// supplied hash and nonce (this is the deserialization path spec.md S4.3
// exempts from re-mining). Callers validating an inbound block must still
// call RecomputeHash themselves.
func FromWire(w Wire) (*Block, error) {
	transactions := make([]Transaction, len(w.Transactions))
	for i, wt := range w.Transactions {
		parsed, err := tx.FromWire(wt)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		transactions[i] = parsed
	}
	hash, err := types.HashFromHex(w.Hash)
	if err != nil {
		return nil, fmt.Errorf("invalid hash: %w", err)
	}
	return FromParts(w.Index, w.Timestamp, transactions, w.PreviousHash, w.Difficulty, w.Nonce, hash), nil
}

// MarshalJSON satisfies json.Marshaler via the wire form.
func (b *Block) MarshalJSON() ([]byte, error) {
	w, err := b.ToWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON satisfies json.Unmarshaler via the wire form.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := FromWire(w)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}
