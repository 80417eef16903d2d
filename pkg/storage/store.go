// Package storage implements spec.md S6.1's persisted-state layout: four
// named JSON blobs under a per-node data directory, each rewritten in
// full on every mutation. Grounded on the teacher's pkg/storage
// (Database's Get/Put/batched Write shape), but over os.ReadFile/
// os.WriteFile rather than LevelDB -- the on-disk contract here (exact
// file names, exact JSON shapes) is itself part of the network-visible
// interface per spec.md S9's interoperability note, so a KV store would
// have to shadow this format rather than be it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/tx"
)

const (
	chainFile   = "chain.json"
	utxoFile    = "utxo_set.json"
	mempoolFile = "mempool.json"
	peersFile   = "peers.json"
)

// Store is the per-node data directory. It implements
// chainstate.Persister and peerset.Persister directly, so a ChainState
// and PeerSet can both be constructed with the same *Store.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating dir if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// HasChain reports whether chain.json exists -- its absence is spec.md
// S7's trigger for genesis creation, distinct from every other blob's
// "missing or corrupt means fresh start" treatment.
func (s *Store) HasChain() bool {
	_, err := os.Stat(s.path(chainFile))
	return err == nil
}

// LoadChain reads chain.json. Per spec.md S7, a missing or corrupt
// chain.json is fatal to call -- callers should check HasChain first and
// construct genesis instead of calling LoadChain when it reports false.
func (s *Store) LoadChain() ([]*block.Block, error) {
	data, err := os.ReadFile(s.path(chainFile))
	if err != nil {
		return nil, fmt.Errorf("read chain.json: %w", err)
	}
	var wires []block.Wire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("parse chain.json: %w", err)
	}
	chain := make([]*block.Block, len(wires))
	for i, w := range wires {
		b, err := block.FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("chain.json block %d: %w", i, err)
		}
		chain[i] = b
	}
	return chain, nil
}

// SaveChain implements chainstate.Persister: a full rewrite of chain.json.
func (s *Store) SaveChain(chain []*block.Block) error {
	wires := make([]block.Wire, len(chain))
	for i, b := range chain {
		w, err := b.ToWire()
		if err != nil {
			return err
		}
		wires[i] = w
	}
	return writeJSONFile(s.path(chainFile), wires)
}

// SaveUtxoSet implements chainstate.Persister: a full rewrite of
// utxo_set.json.
func (s *Store) SaveUtxoSet(snapshot chainstate.Snapshot) error {
	return writeJSONFile(s.path(utxoFile), snapshot)
}

// LoadUtxoSet reads utxo_set.json. Unused by ChainState.Restore, which
// treats the chain as authoritative and rebuilds instead (spec.md S4.4),
// but kept for tooling that wants to inspect the cached set without
// replaying the whole chain.
func (s *Store) LoadUtxoSet() (chainstate.Snapshot, error) {
	data, err := os.ReadFile(s.path(utxoFile))
	if err != nil {
		return chainstate.Snapshot{}, nil
	}
	var snapshot chainstate.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return chainstate.Snapshot{}, nil
	}
	return snapshot, nil
}

// LoadMempool reads mempool.json. A missing or corrupt file yields an
// empty mempool (spec.md S7: "treated as a fresh start, never a crash"),
// matching every blob but chain.json.
func (s *Store) LoadMempool() []*tx.Transaction {
	data, err := os.ReadFile(s.path(mempoolFile))
	if err != nil {
		return nil
	}
	var wires []tx.Wire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil
	}
	out := make([]*tx.Transaction, 0, len(wires))
	for _, w := range wires {
		t, err := tx.FromWire(w)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SaveMempool implements chainstate.Persister: a full rewrite of
// mempool.json.
func (s *Store) SaveMempool(entries []*tx.Transaction) error {
	wires := make([]tx.Wire, len(entries))
	for i, t := range entries {
		wires[i] = t.ToWire()
	}
	return writeJSONFile(s.path(mempoolFile), wires)
}

// LoadPeers reads peers.json, yielding an empty list on any error.
func (s *Store) LoadPeers() []string {
	data, err := os.ReadFile(s.path(peersFile))
	if err != nil {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil
	}
	return urls
}

// SavePeers implements peerset.Persister: a full rewrite of peers.json.
func (s *Store) SavePeers(urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	return writeJSONFile(s.path(peersFile), urls)
}
