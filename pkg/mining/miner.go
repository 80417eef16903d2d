// Package mining implements the background Miner worker of spec.md S4.6,
// grounded on the teacher's pkg/mining/miner.go nonce-search loop and
// pkg/mining/block.go's BlockBuilder/BlockTemplate split, generalized
// from a one-shot CLI-milestone MineBlock call into a supervised
// goroutine that polls chain state, retries on a lost race against an
// inbound block, and reports hashrate telemetry the way the teacher's
// MiningStats does.
package mining

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/consensus"
	"github.com/arjunv-dev/pochain/pkg/logging"
	"github.com/arjunv-dev/pochain/pkg/tx"
	"github.com/arjunv-dev/pochain/pkg/types"
)

// Announcer is the narrow slice of GossipNode the Miner needs: telling
// the network about a block it just mined. Kept as an interface here
// rather than importing pkg/gossip directly, since gossip in turn depends
// on chainstate and would otherwise risk a cycle through this package.
type Announcer interface {
	AnnounceBlock(b *block.Block)
}

// Stats is the per-block telemetry spec.md S4.6 asks the Miner to record:
// elapsed wall-clock time and the nonce that satisfied difficulty, the
// two inputs a hashrate estimate needs.
type Stats struct {
	BlockIndex uint64
	Nonce      uint64
	Elapsed    time.Duration
	HashRate   float64
}

// Miner is the background worker described in spec.md S4.6: a latching
// running flag gates a loop that builds a candidate block from a mempool
// snapshot and a UTXO copy, mines it, and appends it to chain_state.
type Miner struct {
	chainState   *chainstate.ChainState
	gossip       Announcer
	minerKey     types.PublicKey
	params       consensus.Params
	pollInterval time.Duration
	log          *logging.Logger

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	lastStats Stats
}

// New constructs a Miner. It does not start mining until Start is called.
func New(cs *chainstate.ChainState, gossip Announcer, minerKey types.PublicKey, params consensus.Params, pollInterval time.Duration, log *logging.Logger) *Miner {
	return &Miner{
		chainState:   cs,
		gossip:       gossip,
		minerKey:     minerKey,
		params:       params,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Start flips the running flag and spawns the loop goroutine if it is
// not already running.
func (m *Miner) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.loop(m.stopCh)
}

// Stop clears the running flag. In-flight mining completes before the
// loop observes the cleared flag (spec.md S5's "stop is eventually
// consistent to the next block boundary"); Stop blocks until the
// goroutine has exited.
func (m *Miner) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
}

// Resume restarts the loop after a Stop, equivalent to Start.
func (m *Miner) Resume() {
	m.Start()
}

// LastStats returns the most recently recorded per-block telemetry.
func (m *Miner) LastStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStats
}

func (m *Miner) loop(stop chan struct{}) {
	defer m.wg.Done()
	for m.running.Load() {
		select {
		case <-stop:
			return
		default:
		}
		if err := m.mineOnce(); err != nil && m.log != nil {
			m.log.Error(err, "mine attempt failed")
		}
		if !m.running.Load() {
			return
		}
	}
}

// mineOnce runs one pass of spec.md S4.6's loop body: evict expired
// mempool entries, select transactions, build and mine a candidate
// block, and append it. On an append race lost to an inbound block it
// sleeps pollInterval and returns nil so the caller retries from a fresh
// tip.
func (m *Miner) mineOnce() error {
	if err := m.chainState.EvictExpired(); err != nil {
		return err
	}

	selected, fees := m.chainState.SelectForBlock()
	tip := m.chainState.Tip()
	nextIndex := tip.Index + 1

	coinbaseOut := tx.Output{
		Amount:    types.Amount(consensus.Reward(m.params, nextIndex) + fees),
		Recipient: m.minerKey,
	}
	coinbase, err := tx.New(nil, []tx.Output{coinbaseOut}, 0)
	if err != nil {
		return err
	}

	transactions := make([]block.Transaction, 0, len(selected)+1)
	transactions = append(transactions, coinbase)
	for _, t := range selected {
		transactions = append(transactions, t)
	}

	difficulty := m.chainState.Difficulty()
	start := time.Now()
	candidate, err := block.New(nextIndex, time.Now().Unix(), transactions, tip.Hash.String(), difficulty)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	ok, err := m.chainState.AppendBlock(candidate)
	if err != nil || !ok {
		// A failed append here is almost always a lost race: the tip
		// advanced out from under us while mining, so consensus.ValidateBlock
		// rejects our candidate's previous_hash against the new tip
		// (spec.md S4.6 step 5: "the tip advanced during mining ... sleep
		// poll_interval and retry"). Treat any non-success the same way
		// rather than propagating err, which would otherwise have the loop
		// re-mine immediately with no backoff.
		if m.log != nil && err != nil {
			m.log.WithField("reason", err.Error()).Debug("append lost the race to a new tip, backing off")
		}
		time.Sleep(m.pollInterval)
		return nil
	}

	if err := m.chainState.RemoveFromMempool(selected); err != nil {
		return err
	}

	hashRate := 0.0
	if elapsed > 0 {
		hashRate = float64(candidate.Nonce) / elapsed.Seconds()
	}
	m.mu.Lock()
	m.lastStats = Stats{BlockIndex: candidate.Index, Nonce: candidate.Nonce, Elapsed: elapsed, HashRate: hashRate}
	m.mu.Unlock()

	if m.gossip != nil {
		m.gossip.AnnounceBlock(candidate)
	}
	return nil
}
