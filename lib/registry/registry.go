// Package registry tracks live transport handles: named peers dialed
// out to explicitly, and anonymous inbound clients accepted from a
// listener.
package registry

import (
	"sync"

	"github.com/bosnet-cast/fbanode/lib/transport"
)

// Peer is one registered remote node: its dial address and live handle.
type Peer struct {
	URL    string
	Handle transport.Handle
	PubKey string
}

// Registry owns the peer map and the inbound client list exclusively.
type Registry struct {
	mu      sync.RWMutex
	peers   map[string]Peer
	clients []transport.Handle
}

func New() *Registry {
	return &Registry{peers: map[string]Peer{}}
}

// AddPeer registers pk, superseding any prior entry for the same key.
func (r *Registry) AddPeer(pk, url string, h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[pk] = Peer{URL: url, Handle: h, PubKey: pk}
}

// RemovePeer closes and forgets pk's transport handle; it is a no-op if pk
// is not registered.
func (r *Registry) RemovePeer(pk string) {
	r.mu.Lock()
	peer, found := r.peers[pk]
	delete(r.peers, pk)
	r.mu.Unlock()

	if found && peer.Handle != nil {
		peer.Handle.Close()
	}
}

// Peers returns a snapshot of all registered peers.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// PeerKeys returns the public keys of all registered peers.
func (r *Registry) PeerKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.peers))
	for pk := range r.peers {
		out = append(out, pk)
	}
	return out
}

// AddClient appends an inbound connection to the client list.
func (r *Registry) AddClient(h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, h)
}

// RemoveClient removes h from the client list; a no-op if not present.
func (r *Registry) RemoveClient(h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.clients {
		if c == h {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return
		}
	}
}

// AllTransports returns every fan-out target: registered peers followed
// by accepted clients. Peer order follows Go map iteration and is not
// guaranteed to match registration order.
func (r *Registry) AllTransports() []transport.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]transport.Handle, 0, len(r.peers)+len(r.clients))
	for _, p := range r.peers {
		out = append(out, p.Handle)
	}
	out = append(out, r.clients...)
	return out
}
