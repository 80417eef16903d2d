// Command pochain runs a single node: it loads or bootstraps persisted
// state, serves the S6.3 P2P HTTP surface, dials any configured bootstrap
// peers, and optionally runs the background miner -- the Node type here
// plays the same role as the teacher's cmd/phase_11 Node, generalized
// from that milestone demo's storage/wallet/rpc wiring to pochain's
// chainstate/gossip/mining stack.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjunv-dev/pochain/pkg/chainstate"
	"github.com/arjunv-dev/pochain/pkg/config"
	"github.com/arjunv-dev/pochain/pkg/consensus"
	"github.com/arjunv-dev/pochain/pkg/gossip"
	"github.com/arjunv-dev/pochain/pkg/logging"
	"github.com/arjunv-dev/pochain/pkg/mining"
	"github.com/arjunv-dev/pochain/pkg/peerset"
	"github.com/arjunv-dev/pochain/pkg/storage"
	"github.com/arjunv-dev/pochain/pkg/types"
)

func main() {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(cfg.LogLevel))
	log.Info("starting pochain node")
	log.WithFields(map[string]interface{}{
		"node_id":    cfg.NodeID,
		"public_url": cfg.PublicURL,
		"data_dir":   cfg.DataDir,
	}).Info(cfg.String())

	node, err := newNode(cfg, log)
	if err != nil {
		log.Fatal(err, "failed to build node")
	}

	if err := node.Start(); err != nil {
		log.Fatal(err, "failed to start node")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping node")
	node.Stop()
	log.Info("node stopped")
}

// node bundles the collaborators spec.md S1 calls out as external (an
// HTTP listener, persistence, and the clock) alongside the four
// in-process subsystems spec.md S2 names.
type node struct {
	cfg    *config.NodeConfig
	log    *logging.Logger
	store  *storage.Store
	chain  *chainstate.ChainState
	peers  *peerset.PeerSet
	gossip *gossip.GossipNode
	miner  *mining.Miner
	server *http.Server
}

func newNode(cfg *config.NodeConfig, log *logging.Logger) (*node, error) {
	params := consensus.DefaultParams()

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}

	var chain *chainstate.ChainState
	if store.HasChain() {
		persisted, err := store.LoadChain()
		if err != nil {
			return nil, fmt.Errorf("load chain.json: %w", err)
		}
		chain, err = chainstate.Restore(persisted, params, store)
		if err != nil {
			return nil, fmt.Errorf("restore chain state: %w", err)
		}
		log.Info("restored chain from disk")
	} else {
		log.Info("no persisted chain found, constructing genesis")
		genesis, err := chainstate.ConstructGenesis(params)
		if err != nil {
			return nil, fmt.Errorf("construct genesis: %w", err)
		}
		chain, err = chainstate.New(genesis, params, store)
		if err != nil {
			return nil, fmt.Errorf("initialize chain state: %w", err)
		}
		if err := store.SaveChain(chain.Chain()); err != nil {
			return nil, fmt.Errorf("persist genesis: %w", err)
		}
	}
	chain.LoadMempool(store.LoadMempool())

	peers := peerset.New(cfg.PublicURL, store)
	peers.Load(store.LoadPeers())

	gn := gossip.New(cfg.PublicURL, peers, chain, params, log.WithField("component", "gossip"))

	var miner *mining.Miner
	if cfg.MiningEnabled {
		minerKey, err := loadMinerKey(cfg.MinerKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load miner key: %w", err)
		}
		miner = mining.New(chain, gn, minerKey, params, cfg.PollInterval, log.WithField("component", "miner"))
	}

	return &node{
		cfg:    cfg,
		log:    log,
		store:  store,
		chain:  chain,
		peers:  peers,
		gossip: gn,
		miner:  miner,
		server: &http.Server{Addr: cfg.ListenAddress(), Handler: gn.Router()},
	}, nil
}

func loadMinerKey(path string) (types.PublicKey, error) {
	if path == "" {
		return types.PublicKey{}, fmt.Errorf("no miner key file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PublicKey{}, err
	}
	return types.ParsePublicKeyPEM(data)
}

// Start serves the P2P HTTP surface, dials configured bootstrap peers
// once the listener is up, and starts the miner if enabled.
func (n *node) Start() error {
	go func() {
		n.log.WithField("addr", n.cfg.ListenAddress()).Info("p2p http server listening")
		if err := n.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.Error(err, "p2p http server stopped")
		}
	}()

	time.Sleep(200 * time.Millisecond)
	for _, peerURL := range n.cfg.InitialPeers {
		peerURL := peerURL
		go func() {
			if err := n.gossip.Connect(peerURL); err != nil {
				n.log.WithField("peer", peerURL).Error(err, "failed to connect to bootstrap peer")
			}
		}()
	}

	if n.miner != nil {
		n.miner.Start()
		n.log.Info("miner started")
	}

	return nil
}

// Stop halts the miner, cooperatively letting any in-flight block finish
// mining (spec.md S5), then shuts down the HTTP listener.
func (n *node) Stop() {
	if n.miner != nil {
		n.miner.Stop()
	}
	_ = n.server.Close()
}
