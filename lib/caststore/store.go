// Package caststore implements the (channel, sender) -> latest Cast
// mapping, owned exclusively by the externalization handler.
package caststore

import (
	"sync"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

type key struct {
	channel slotid.Channel
	sender  string
}

// Store is safe for concurrent use, though its single-writer discipline
// (only the externalization handler mutates it) means the lock only ever
// guards against concurrent readers racing a write from another goroutine
// (e.g. a metrics scraper), not against concurrent writers.
type Store struct {
	mu      sync.RWMutex
	entries map[key]cast.Cast
}

func New() *Store {
	return &Store{entries: map[key]cast.Cast{}}
}

// Latest returns the current cast for (channel, sender) and whether one
// exists yet.
func (s *Store) Latest(channel slotid.Channel, sender string) (cast.Cast, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, found := s.entries[key{channel, sender}]
	return c, found
}

// Prv returns the sha to chain from for a sender's next cast on channel,
// defaulting to the empty string when no cast has been externalized yet.
func (s *Store) Prv(channel slotid.Channel, sender string) string {
	c, found := s.Latest(channel, sender)
	if !found {
		return ""
	}
	return c.Sha
}

// Put overwrites the entry for (channel, sender). Only the externalization
// handler should call this.
func (s *Store) Put(channel slotid.Channel, sender string, c cast.Cast) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key{channel, sender}] = c
}
