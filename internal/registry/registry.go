// Package registry keeps a bounded in-memory table of peers learned through
// discovery replies.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edgecli/lanping/internal/discovery"
	"github.com/edgecli/lanping/internal/transport"
)

// DefaultSize is the number of peers kept before the least recently seen
// one is evicted.
const DefaultSize = 1024

// PeerEntry holds the latest identity and address reported by a peer.
type PeerEntry struct {
	Identity  discovery.Identity
	Addr      transport.Addr
	FirstSeen time.Time
	LastSeen  time.Time
	Replies   int
}

// Registry is a thread-safe peer table keyed by node id.
type Registry struct {
	clock clock.Clock
	peers *lru.Cache[string, *PeerEntry]
	mu    sync.Mutex
}

// NewRegistry creates a registry holding at most size peers. A nil clk uses
// the wall clock.
func NewRegistry(size int, clk clock.Clock) (*Registry, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if clk == nil {
		clk = clock.New()
	}
	cache, err := lru.New[string, *PeerEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer cache: %w", err)
	}
	return &Registry{
		clock: clk,
		peers: cache,
	}, nil
}

// Upsert records a reply from a peer. It returns a copy of the entry and
// whether the peer was unknown until now.
func (r *Registry) Upsert(id discovery.Identity, addr transport.Addr) (PeerEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	entry, exists := r.peers.Get(id.ID)
	if exists {
		entry.Identity = id
		entry.Addr = addr
		entry.LastSeen = now
		entry.Replies++
	} else {
		entry = &PeerEntry{
			Identity:  id,
			Addr:      addr,
			FirstSeen: now,
			LastSeen:  now,
			Replies:   1,
		}
		r.peers.Add(id.ID, entry)
	}
	return *entry, !exists
}

// Get returns the entry for a peer id.
func (r *Registry) Get(id string) (PeerEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.peers.Peek(id)
	if !ok {
		return PeerEntry{}, false
	}
	return *entry, true
}

// List returns all peers ordered by first sighting.
func (r *Registry) List() []PeerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PeerEntry, 0, r.peers.Len())
	for _, entry := range r.peers.Values() {
		out = append(out, *entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].Identity.ID < out[j].Identity.ID
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// WithRole returns the peers that declared role. An empty role selects the
// peers that declared none.
func (r *Registry) WithRole(role string) []PeerEntry {
	var out []PeerEntry
	for _, entry := range r.List() {
		if entry.Identity.Role == role {
			out = append(out, entry)
		}
	}
	return out
}

// Count returns the number of known peers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers.Len()
}
