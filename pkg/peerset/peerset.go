// Package peerset tracks known peer base URLs and their strike counts
// (spec.md S4.7), guarded by a lock separate from ChainState's (spec.md
// S5: "PeerSet has its own finer-grained lock guarding peer URL/strike
// maps"). Grounded on the teacher's pkg/security/ratelimit.go for the
// mutex-guarded-counter shape and pkg/network/peer/peer.go for the idea
// of a peer registry, generalized from per-connection rate limiting to
// per-peer demerit counting.
package peerset

import "sync"

// MaxStrikes is spec.md S4.7's MAX_PEER_STRIKES: the number of strikes
// that bans a peer.
const MaxStrikes = 5

// PeerSet is a set of peer base URLs with an auxiliary strike count per
// peer, persisted on every mutation.
type PeerSet struct {
	mu      sync.Mutex
	self    string
	peers   map[string]bool
	strikes map[string]uint
	persist Persister
}

// Persister is the storage collaborator called after every mutation so a
// restarted node can re-dial known peers without a bootstrap flag
// (spec.md S4.7).
type Persister interface {
	SavePeers(urls []string) error
}

// New returns an empty PeerSet that refuses to add self.
func New(self string, persist Persister) *PeerSet {
	return &PeerSet{
		self:    self,
		peers:   make(map[string]bool),
		strikes: make(map[string]uint),
		persist: persist,
	}
}

// Load seeds the set from a previously persisted peer list, without
// triggering persistence itself.
func (p *PeerSet) Load(urls []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, url := range urls {
		if url != p.self {
			p.peers[url] = true
		}
	}
}

// Add registers url, rejecting self and no-op'ing if already known.
// Returns true iff url was newly added.
func (p *PeerSet) Add(url string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if url == p.self || p.peers[url] {
		return false, nil
	}
	p.peers[url] = true
	if err := p.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops url from the set.
func (p *PeerSet) Remove(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.peers[url] {
		return nil
	}
	delete(p.peers, url)
	delete(p.strikes, url)
	return p.persistLocked()
}

// Strike records a demerit against url, banning (dropping it and
// clearing its counter) once it reaches MaxStrikes. Returns the new
// strike count (0 if the peer was banned) and whether it was banned.
func (p *PeerSet) Strike(url string) (uint, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.peers[url] {
		return 0, false, nil
	}
	p.strikes[url]++
	count := p.strikes[url]
	banned := count >= MaxStrikes
	if banned {
		delete(p.peers, url)
		delete(p.strikes, url)
	}
	if err := p.persistLocked(); err != nil {
		return count, banned, err
	}
	if banned {
		return 0, true, nil
	}
	return count, false, nil
}

// Reset clears url's strike count, called on receipt of a valid block
// from that peer.
func (p *PeerSet) Reset(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.strikes[url] == 0 {
		return nil
	}
	delete(p.strikes, url)
	return p.persistLocked()
}

// URLs returns a snapshot of every known peer base URL.
func (p *PeerSet) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.peers))
	for url := range p.peers {
		out = append(out, url)
	}
	return out
}

// Has reports whether url is currently a known peer.
func (p *PeerSet) Has(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peers[url]
}

func (p *PeerSet) persistLocked() error {
	if p.persist == nil {
		return nil
	}
	out := make([]string, 0, len(p.peers))
	for url := range p.peers {
		out = append(out, url)
	}
	return p.persist.SavePeers(out)
}
