package chainstate

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/consensus"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// MaxMempoolSize, TxExpirySeconds and MaxTxPerBlock are spec.md S4.6/S9's
// resource bounds. They live alongside ChainState, not consensus.Params,
// because nothing about them is part of the block-validity rules other
// nodes must agree on -- two nodes with different mempool caps still
// agree on which blocks are valid.
const (
	MaxMempoolSize  = 5000
	TxExpirySeconds = 3 * 60 * 60
	MaxTxPerBlock   = 500
)

// ChainState owns the chain, UTXO set, mempool, and tx index behind one
// exclusive lock (spec.md S4.4/S5). The teacher keeps UTXOSet.mu and
// Mempool.mu separate; merging them here is deliberate -- admit_tx reads
// the UTXO set while deciding mempool admission, and append_block mutates
// both together, so two locks could interleave and admit a transaction
// against a UTXO set that append_block is mid-way through rewriting.
type ChainState struct {
	mu         sync.Mutex
	chain      []*block.Block
	utxo       *UtxoSet
	mempool    map[string]*mempoolEntry
	txIndex    map[types.Hash256]uint64 // tx id -> containing block index
	difficulty uint8
	params     consensus.Params
	persist    Persister
}

// Persister is the storage collaborator ChainState calls after every
// successful mutation (spec.md S6.1: full-file rewrites, no partial
// writes). pkg/storage implements this over the node's data directory.
type Persister interface {
	SaveChain(chain []*block.Block) error
	SaveUtxoSet(Snapshot) error
	SaveMempool(entries []*tx.Transaction) error
}

// New builds a ChainState seeded with a genesis block already produced
// by the caller (consensus.ValidateChain never runs against an empty
// chain, so there is always at least a genesis to start from).
func New(genesis *block.Block, p consensus.Params, persist Persister) (*ChainState, error) {
	snapshot, err := consensus.ValidateChain([]*block.Block{genesis}, p)
	if err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	cs := &ChainState{
		chain:      []*block.Block{genesis},
		utxo:       NewUtxoSet(),
		mempool:    make(map[string]*mempoolEntry),
		txIndex:    make(map[types.Hash256]uint64),
		difficulty: genesis.Difficulty,
		params:     p,
		persist:    persist,
	}
	for txID, outputs := range snapshot.Entries() {
		for idx, out := range outputs {
			cs.utxo.Put(txID, idx, out)
		}
	}
	cs.indexBlock(genesis)
	return cs, nil
}

// Restore rebuilds a ChainState from a previously persisted chain,
// replaying rebuild_utxo_set rather than trusting a separately persisted
// utxo_set.json blind -- the chain is the authoritative source of truth
// (spec.md S4.4).
func Restore(chain []*block.Block, p consensus.Params, persist Persister) (*ChainState, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("cannot restore from an empty chain")
	}
	cs := &ChainState{
		chain:      chain,
		utxo:       RebuildUtxoSet(chain),
		mempool:    make(map[string]*mempoolEntry),
		txIndex:    make(map[types.Hash256]uint64),
		difficulty: chain[len(chain)-1].Difficulty,
		params:     p,
		persist:    persist,
	}
	for _, b := range chain {
		cs.indexBlock(b)
	}
	return cs, nil
}

func (cs *ChainState) indexBlock(b *block.Block) {
	for _, t := range b.Transactions {
		cs.txIndex[t.TxID()] = b.Index
	}
}

// RebuildUtxoSet implements spec.md S4.4's rebuild_utxo_set: a pure
// function of the chain, starting from an empty set and applying every
// transaction of every block in order. This is the authoritative
// definition of the UTXO set -- anything else is a cache of this.
func RebuildUtxoSet(chain []*block.Block) *UtxoSet {
	u := NewUtxoSet()
	for _, b := range chain {
		for _, t := range b.Transactions {
			concrete, ok := t.(*tx.Transaction)
			if !ok {
				continue
			}
			tx.Apply(u, concrete)
		}
	}
	return u
}

// Tip returns the current chain head.
func (cs *ChainState) Tip() *block.Block {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.chain[len(cs.chain)-1]
}

// Chain returns the current chain slice. Callers must treat it as
// read-only; ChainState never mutates a block in place once appended.
func (cs *ChainState) Chain() []*block.Block {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*block.Block, len(cs.chain))
	copy(out, cs.chain)
	return out
}

// Difficulty returns the difficulty the next block must meet.
func (cs *ChainState) Difficulty() uint8 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.difficulty
}

// UtxoSetCopy returns a deep copy of the live UTXO set, suitable for a
// mining or validation snapshot that must not leak mutations back.
func (cs *ChainState) UtxoSetCopy() *UtxoSet {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.utxo.Clone()
}

// AdmitTx implements spec.md S4.4's admit_tx: a transaction is accepted
// into the mempool iff every input resolves in the live UTXO set, none
// are locked by another pending transaction, it is not a value-creating
// or badly-signed transaction, and the mempool is below capacity.
func (cs *ChainState) AdmitTx(t *tx.Transaction) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	id := t.TxID().String()
	if _, exists := cs.mempool[id]; exists {
		return false, nil
	}
	if len(cs.mempool) >= MaxMempoolSize {
		return false, nil
	}

	locked := lockedOutputs(cs.mempool, id)
	for _, in := range t.Inputs {
		if locked[in.PrevTxID.String()+":"+strconv.FormatUint(uint64(in.PrevOutputIndex), 10)] {
			return false, nil
		}
	}

	valid, fee, err := t.Verify(cs.utxo)
	if err != nil || !valid {
		return false, err
	}

	cs.mempool[id] = &mempoolEntry{Tx: t, Fee: fee.Int64(), ReceivedAt: time.Now().Unix()}
	if cs.persist != nil {
		if err := cs.persist.SaveMempool(cs.mempoolSnapshotLocked()); err != nil {
			return false, err
		}
	}
	return true, nil
}

// AppendBlock implements spec.md S4.4's append_block: validate against
// the live tip and a throwaway UTXO copy, and only on success commit the
// copy's mutations to the live set, append to chain, update tx_index,
// retarget difficulty, and persist chain and UTXO set.
func (cs *ChainState) AppendBlock(b *block.Block) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	tip := cs.chain[len(cs.chain)-1]
	view := cs.utxo.Clone()
	if err := consensus.ValidateBlock(b, tip, view, cs.params); err != nil {
		return false, err
	}

	cs.utxo = view
	cs.chain = append(cs.chain, b)
	cs.indexBlock(b)
	cs.difficulty = consensus.NextDifficulty(cs.chain, cs.difficulty, cs.params)
	cs.removeFromMempoolLocked(b)

	if cs.persist != nil {
		if err := cs.persist.SaveChain(cs.chain); err != nil {
			return false, err
		}
		if err := cs.persist.SaveUtxoSet(cs.utxo.ToSnapshot()); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (cs *ChainState) removeFromMempoolLocked(b *block.Block) {
	for _, t := range b.Transactions {
		delete(cs.mempool, t.TxID().String())
	}
}

// GetTransaction implements spec.md S4.4's get_transaction: O(1) lookup
// of the block index a transaction was confirmed in, via tx_index.
func (cs *ChainState) GetTransaction(txID types.Hash256) (*tx.Transaction, uint64, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	blockIndex, ok := cs.txIndex[txID]
	if !ok {
		return nil, 0, false
	}
	for _, t := range cs.chain[blockIndex].Transactions {
		if t.TxID() == txID {
			concrete, _ := t.(*tx.Transaction)
			return concrete, blockIndex, true
		}
	}
	return nil, 0, false
}

// EvictExpired implements the first step of spec.md S4.6's miner loop:
// drop mempool entries whose transaction timestamp is older than
// TxExpirySeconds, persisting the mempool if anything was evicted.
func (cs *ChainState) EvictExpired() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := time.Now().Unix()
	evicted := false
	for id, entry := range cs.mempool {
		if now-entry.Tx.Timestamp > TxExpirySeconds {
			delete(cs.mempool, id)
			evicted = true
		}
	}
	if evicted && cs.persist != nil {
		return cs.persist.SaveMempool(cs.mempoolSnapshotLocked())
	}
	return nil
}

// SelectForBlock implements spec.md S4.6 steps 2-3: sort the mempool by
// fee descending and greedily select up to MaxTxPerBlock transactions
// that verify against (and are applied to) a throwaway copy of the live
// UTXO set, to preclude an intra-block double-spend.
func (cs *ChainState) SelectForBlock() ([]*tx.Transaction, int64) {
	cs.mu.Lock()
	entries := make([]*mempoolEntry, 0, len(cs.mempool))
	for _, e := range cs.mempool {
		entries = append(entries, e)
	}
	view := cs.utxo.Clone()
	cs.mu.Unlock()

	sortByFeeDescending(entries)

	selected := make([]*tx.Transaction, 0, MaxTxPerBlock)
	var totalFees int64
	for _, e := range entries {
		if len(selected) >= MaxTxPerBlock {
			break
		}
		valid, fee, err := e.Tx.Verify(view)
		if err != nil || !valid {
			continue
		}
		tx.Apply(view, e.Tx)
		selected = append(selected, e.Tx)
		totalFees += fee.Int64()
	}
	return selected, totalFees
}

func sortByFeeDescending(entries []*mempoolEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Fee > entries[j-1].Fee; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// RemoveFromMempool drops the given transactions from the mempool and
// persists it -- spec.md S4.6 step 6, called after a mined block is
// successfully appended.
func (cs *ChainState) RemoveFromMempool(txs []*tx.Transaction) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, t := range txs {
		delete(cs.mempool, t.TxID().String())
	}
	if cs.persist != nil {
		return cs.persist.SaveMempool(cs.mempoolSnapshotLocked())
	}
	return nil
}

func (cs *ChainState) mempoolSnapshotLocked() []*tx.Transaction {
	out := make([]*tx.Transaction, 0, len(cs.mempool))
	for _, e := range cs.mempool {
		out = append(out, e.Tx)
	}
	return out
}

// ForkIndex returns the smallest index where local and received chains'
// block hashes differ, or the length of the shorter chain if one is a
// strict prefix of the other -- spec.md S4.8 step 4's fork_index.
func ForkIndex(local, received []*block.Block) uint64 {
	n := len(local)
	if len(received) < n {
		n = len(received)
	}
	for i := 0; i < n; i++ {
		if local[i].Hash != received[i].Hash {
			return uint64(i)
		}
	}
	return uint64(n)
}

// ReplaceChain implements spec.md S4.8 steps 4-5: reinject every
// non-coinbase transaction confirmed only on the local branch from
// fork_index onward back into the mempool (it is re-verified against the
// new UTXO set before admission, so an input the new branch already
// spent is silently dropped rather than re-admitted), then atomically
// swap in the received chain and its rebuilt UTXO set. Callers must have
// already run consensus.ValidateChain on received and rejected on
// failure before calling this.
func (cs *ChainState) ReplaceChain(received []*block.Block) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	forkIndex := ForkIndex(cs.chain, received)

	receivedIDs := make(map[types.Hash256]bool)
	for _, b := range received[forkIndex:] {
		for _, t := range b.Transactions {
			receivedIDs[t.TxID()] = true
		}
	}

	var orphaned []*tx.Transaction
	if int(forkIndex) < len(cs.chain) {
		for _, b := range cs.chain[forkIndex:] {
			for _, t := range b.Transactions {
				concrete, ok := t.(*tx.Transaction)
				if !ok || concrete.IsCoinbase() || receivedIDs[t.TxID()] {
					continue
				}
				orphaned = append(orphaned, concrete)
			}
		}
	}

	newUtxo := RebuildUtxoSet(received)
	cs.chain = received
	cs.utxo = newUtxo
	cs.difficulty = received[len(received)-1].Difficulty
	cs.txIndex = make(map[types.Hash256]uint64)
	for _, b := range received {
		cs.indexBlock(b)
	}

	for _, t := range orphaned {
		valid, fee, err := t.Verify(cs.utxo)
		if err != nil || !valid {
			continue
		}
		cs.mempool[t.TxID().String()] = &mempoolEntry{Tx: t, Fee: fee.Int64(), ReceivedAt: time.Now().Unix()}
	}

	if cs.persist != nil {
		if err := cs.persist.SaveChain(cs.chain); err != nil {
			return err
		}
		if err := cs.persist.SaveUtxoSet(cs.utxo.ToSnapshot()); err != nil {
			return err
		}
		if err := cs.persist.SaveMempool(cs.mempoolSnapshotLocked()); err != nil {
			return err
		}
	}
	return nil
}

// LoadMempool seeds the mempool from previously persisted transactions
// (mempool.json), re-verifying each against the live UTXO set rather
// than trusting the file blindly.
func (cs *ChainState) LoadMempool(txs []*tx.Transaction) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, t := range txs {
		valid, fee, err := t.Verify(cs.utxo)
		if err != nil || !valid {
			continue
		}
		cs.mempool[t.TxID().String()] = &mempoolEntry{Tx: t, Fee: fee.Int64(), ReceivedAt: time.Now().Unix()}
	}
}
