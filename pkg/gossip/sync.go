package gossip

import (
	"encoding/json"
	"time"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/consensus"
)

func nowUnix() int64 {
	return time.Now().Unix()
}

type chainResponse struct {
	Chain []block.Wire `json:"chain"`
}

// SyncChainFrom implements spec.md S4.8's sync_chain_from: fetch the
// peer's chain, and if it is strictly longer, validate it in isolation
// and -- on success -- hand it to chain_state for reorganization. Ties
// favor the incumbent (spec.md S4.8's sole fork-choice rule), so a
// same-length or shorter chain is simply ignored.
func (g *GossipNode) SyncChainFrom(peerURL string) {
	resp, err := g.client.Get(peerURL + "/p2p/chain")
	if err != nil {
		return
	}
	defer resp.Body.Close()

	var payload chainResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return
	}

	local := g.chain.Chain()
	if len(payload.Chain) <= len(local) {
		return
	}

	received := make([]*block.Block, len(payload.Chain))
	for i, w := range payload.Chain {
		b, err := block.FromWire(w)
		if err != nil {
			return
		}
		received[i] = b
	}

	if len(local) > 0 && received[0].Difficulty != local[0].Difficulty {
		return
	}
	for _, b := range received[1:] {
		if b.Difficulty < g.params.GenesisDifficulty {
			return
		}
	}

	if _, err := consensus.ValidateChain(received, g.params); err != nil {
		if g.log != nil {
			g.log.Error(err, "rejected received chain during sync")
		}
		return
	}

	if err := g.chain.ReplaceChain(received); err != nil && g.log != nil {
		g.log.Error(err, "failed to replace chain during sync")
	}
}
