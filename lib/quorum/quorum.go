// Package quorum models the FBA engine's quorum-set configuration: named
// groups of validator public keys plus a threshold, exposed through
// for_each/add_quorum/remove_quorum/add_node/remove_node.
//
// This is a deliberate simplification of full Stellar-style quorum slices
// with transitive-closure intersection checking (see DESIGN.md Open
// Question): each set's own threshold is checked directly rather than
// computing quorum intersection across the whole slice graph, which is
// sufficient for small, fully-meshed clusters and keeps the reference
// engine's acceptance rule legible.
package quorum

import (
	"sync"

	"github.com/bosnet-cast/fbanode/lib/errors"
)

// Set is one named quorum: a set of validators and how many of them must
// agree.
type Set struct {
	Validators []string
	Threshold  int
}

func (s Set) has(pk string) bool {
	for _, v := range s.Validators {
		if v == pk {
			return true
		}
	}
	return false
}

// Satisfied reports whether votes (a set of public keys) contains at
// least Threshold of this quorum's validators. It does not know which
// ballot each key voted for.
func (s Set) Satisfied(votes map[string]struct{}) bool {
	count := 0
	for _, v := range s.Validators {
		if _, voted := votes[v]; voted {
			count++
		}
	}
	return count >= s.Threshold
}

// Table is the node's quorums() subobject: a mutable collection of named
// quorum sets.
type Table struct {
	mu   sync.RWMutex
	sets map[string]Set
}

func NewTable() *Table {
	return &Table{sets: map[string]Set{}}
}

func (t *Table) AddQuorum(name string, validators []string, threshold int) *errors.Error {
	if threshold < 1 || threshold > len(validators) {
		return errors.New(0, "quorum threshold out of range").
			SetData("name", name).SetData("threshold", threshold).SetData("validators", len(validators))
	}

	cp := append([]string(nil), validators...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[name] = Set{Validators: cp, Threshold: threshold}
	return nil
}

func (t *Table) RemoveQuorum(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sets, name)
}

// AddNode appends pk to every existing quorum set's validator list that
// doesn't already contain it.
func (t *Table) AddNode(pk string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for name, set := range t.sets {
		if set.has(pk) {
			continue
		}
		set.Validators = append(append([]string(nil), set.Validators...), pk)
		t.sets[name] = set
	}
}

// RemoveNode removes pk from every quorum set's validator list.
func (t *Table) RemoveNode(pk string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for name, set := range t.sets {
		kept := set.Validators[:0:0]
		for _, v := range set.Validators {
			if v != pk {
				kept = append(kept, v)
			}
		}
		set.Validators = kept
		t.sets[name] = set
	}
}

// ForEach calls fn for every quorum set currently configured. Iteration
// order is unspecified.
func (t *Table) ForEach(fn func(name string, set Set)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for name, set := range t.sets {
		fn(name, set)
	}
}

// AnySatisfied reports whether at least one configured quorum set is
// satisfied by votes. Whether the local node belongs to that set is not
// checked.
func (t *Table) AnySatisfied(votes map[string]struct{}) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, set := range t.sets {
		if set.Satisfied(votes) {
			return true
		}
	}
	return false
}
