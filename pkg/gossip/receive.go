package gossip

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/tx"
)

type blockPayload struct {
	block.Wire
	SenderURL string `json:"_sender_url,omitempty"`
}

type txPayload struct {
	tx.Wire
	SenderURL string `json:"_sender_url,omitempty"`
}

func (g *GossipNode) handleBlock(w http.ResponseWriter, r *http.Request) {
	var payload blockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed block", http.StatusBadRequest)
		return
	}
	b, err := block.FromWire(payload.Wire)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g.ReceiveBlock(b, payload.SenderURL)
	w.WriteHeader(http.StatusOK)
}

func (g *GossipNode) handleTx(w http.ResponseWriter, r *http.Request) {
	var payload txPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed transaction", http.StatusBadRequest)
		return
	}
	t, err := tx.FromWire(payload.Wire)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g.ReceiveTx(t, payload.SenderURL)
	w.WriteHeader(http.StatusOK)
}

// ReceiveBlock implements spec.md S4.8's receive-block: reject blocks
// that are obviously malformed before touching chain state, append when
// the block extends our tip, kick off a background sync when we are
// behind, and otherwise ignore it.
func (g *GossipNode) ReceiveBlock(b *block.Block, sender string) {
	if b.Difficulty < g.params.GenesisDifficulty {
		g.strikeIfKnown(sender)
		return
	}
	if now := nowUnix(); b.Timestamp > now+g.params.MaxTimestampDrift {
		g.strikeIfKnown(sender)
		return
	}

	tip := g.chain.Tip()
	switch {
	case b.PreviousHash == tip.Hash.String():
		ok, err := g.chain.AppendBlock(b)
		if err != nil || !ok {
			g.strikeIfKnown(sender)
			return
		}
		if sender != "" {
			g.peers.Reset(sender)
		}
		g.Broadcast("/p2p/block", blockPayload{Wire: mustWire(b), SenderURL: g.publicURL}, sender)
	case b.Index > tip.Index:
		if sender != "" {
			go g.SyncChainFrom(sender)
		} else {
			go g.syncFromAllPeers()
		}
	default:
	}
}

// ReceiveTx implements spec.md S4.8's receive-tx: delegate to
// chain_state.admit_tx and rebroadcast on acceptance.
func (g *GossipNode) ReceiveTx(t *tx.Transaction, sender string) {
	ok, err := g.chain.AdmitTx(t)
	if err != nil || !ok {
		return
	}
	g.Broadcast("/p2p/tx", txPayload{Wire: t.ToWire(), SenderURL: g.publicURL}, sender)
}

func (g *GossipNode) strikeIfKnown(sender string) {
	if sender == "" {
		return
	}
	g.peers.Strike(sender)
}

func (g *GossipNode) syncFromAllPeers() {
	for _, url := range g.peers.URLs() {
		g.SyncChainFrom(url)
	}
}

func mustWire(b *block.Block) block.Wire {
	w, err := b.ToWire()
	if err != nil {
		return block.Wire{}
	}
	return w
}

// Broadcast implements spec.md S4.8's broadcast: POST payload to every
// peer but exclude, each in its own goroutine, swallowing network errors
// (best-effort delivery).
func (g *GossipNode) Broadcast(path string, payload interface{}, exclude string) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, peerURL := range g.peers.URLs() {
		if peerURL == exclude {
			continue
		}
		go g.post(peerURL+path, body)
	}
}

// AnnounceBlock satisfies pkg/mining.Announcer: broadcast a newly mined
// block to every peer.
func (g *GossipNode) AnnounceBlock(b *block.Block) {
	w, err := b.ToWire()
	if err != nil {
		return
	}
	g.Broadcast("/p2p/block", blockPayload{Wire: w, SenderURL: g.publicURL}, "")
}

func (g *GossipNode) post(url string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
