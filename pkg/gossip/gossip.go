// Package gossip implements the HTTP-based peer overlay of spec.md
// S4.8/S6.3. The teacher's pkg/network speaks a raw length-prefixed TCP
// binary protocol (pkg/network/protocol) with a SyncManager tracking
// in-flight block requests; this node's wire contract is instead plain
// JSON-over-HTTP, so gossip is the component most reworked relative to
// the teacher -- grounded on the *shape* of the teacher's Node/Server
// split and SyncManager (one collaborator owning peers, one owning sync)
// but riding github.com/gorilla/mux for routing rather than a hand-rolled
// framer, matching the broader example pack's HTTP-service idiom.
package gossip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arjunv-dev/pochain/pkg/block"
	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/consensus"
	"github.com/arjunv-dev/pochain/pkg/logging"
	"github.com/arjunv-dev/pochain/pkg/peerset"
	"github.com/arjunv-dev/pochain/pkg/tx"
)

// MinVersion is spec.md S4.8's MIN_VERSION: the lowest handshake version
// this node accepts from a peer.
const MinVersion = 1

// NodeVersion is the version this node presents in its own handshakes.
const NodeVersion = 1

// httpTimeout bounds every outbound call (spec.md S5: "5s default").
const httpTimeout = 5 * time.Second

// GossipNode is spec.md S4.8's GossipNode: an HTTP server plus client
// dialing peers, with its own chain_state and consensus params.
type GossipNode struct {
	publicURL string
	peers     *peerset.PeerSet
	chain     *chainstate.ChainState
	params    consensus.Params
	log       *logging.Logger
	client    *http.Client
}

// New constructs a GossipNode. Call Router to obtain the mux.Router for
// an http.Server, and Connect to dial a bootstrap peer.
func New(publicURL string, peers *peerset.PeerSet, chain *chainstate.ChainState, params consensus.Params, log *logging.Logger) *GossipNode {
	return &GossipNode{
		publicURL: publicURL,
		peers:     peers,
		chain:     chain,
		params:    params,
		log:       log,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// Router builds the mux.Router serving spec.md S6.3's P2P HTTP surface.
func (g *GossipNode) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/p2p/handshake", g.handleHandshake).Methods(http.MethodPost)
	r.HandleFunc("/p2p/block", g.handleBlock).Methods(http.MethodPost)
	r.HandleFunc("/p2p/tx", g.handleTx).Methods(http.MethodPost)
	r.HandleFunc("/p2p/chain", g.handleGetChain).Methods(http.MethodGet)
	r.HandleFunc("/p2p/peers", g.handleGetPeers).Methods(http.MethodGet)
	return r
}

type handshakeRequest struct {
	URL     string `json:"url"`
	Version int    `json:"version"`
}

type handshakeResponse struct {
	URL         string `json:"url"`
	Version     int    `json:"version"`
	ChainLength int    `json:"chain_length"`
}

func (g *GossipNode) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var req handshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed handshake", http.StatusBadRequest)
		return
	}
	if req.Version < MinVersion {
		http.Error(w, "version too old", http.StatusBadRequest)
		return
	}

	newlyAdded, err := g.peers.Add(req.URL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if newlyAdded {
		go g.propagateNewPeer(req.URL)
	}

	writeJSON(w, handshakeResponse{
		URL:         g.publicURL,
		Version:     NodeVersion,
		ChainLength: len(g.chain.Chain()),
	})
}

// propagateNewPeer implements spec.md S4.8's handshake propagation: after
// a short delay for the new peer's HTTP surface to come up, hand it our
// own handshake, introduce it to every existing peer, and introduce
// every existing peer to it.
func (g *GossipNode) propagateNewPeer(url string) {
	time.Sleep(300 * time.Millisecond)

	g.postHandshake(url)

	for _, existing := range g.peers.URLs() {
		if existing == url {
			continue
		}
		go g.postHandshakeTo(existing, url)
		go g.postHandshakeTo(url, existing)
	}
}

func (g *GossipNode) postHandshake(peerURL string) {
	g.postHandshakeTo(peerURL, g.publicURL)
}

// postHandshakeTo posts a handshake announcing introducedURL to target.
func (g *GossipNode) postHandshakeTo(target, introducedURL string) {
	body, _ := json.Marshal(handshakeRequest{URL: introducedURL, Version: NodeVersion})
	req, err := http.NewRequest(http.MethodPost, target+"/p2p/handshake", bytes.NewReader(body))
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

// Connect implements spec.md S4.8's outbound Connect: post our
// handshake, and on success register the peer, persist, sync the chain,
// and discover its peers.
func (g *GossipNode) Connect(peerURL string) error {
	body, _ := json.Marshal(handshakeRequest{URL: g.publicURL, Version: NodeVersion})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, peerURL+"/p2p/handshake", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("handshake with %s: %w", peerURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("handshake with %s: status %d", peerURL, resp.StatusCode)
	}

	if _, err := g.peers.Add(peerURL); err != nil {
		return err
	}
	go g.SyncChainFrom(peerURL)
	go g.discoverPeersFrom(peerURL)
	return nil
}

func (g *GossipNode) discoverPeersFrom(peerURL string) {
	resp, err := g.client.Get(peerURL + "/p2p/peers")
	if err != nil {
		return
	}
	defer resp.Body.Close()
	var payload struct {
		Peers []string `json:"peers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return
	}
	for _, url := range payload.Peers {
		if url == g.publicURL || g.peers.Has(url) {
			continue
		}
		go g.Connect(url)
	}
}

func (g *GossipNode) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chain := g.chain.Chain()
	wires := make([]block.Wire, len(chain))
	for i, b := range chain {
		wire, err := b.ToWire()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		wires[i] = wire
	}
	writeJSON(w, map[string]interface{}{"chain": wires})
}

func (g *GossipNode) handleGetPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"peers": g.peers.URLs()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.Encode(v)
}
