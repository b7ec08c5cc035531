package fba

import (
	"time"

	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// Slot is the read-only view of consensus-instance state the ballot
// callbacks are given: its id, creation time, and the highest ballot cast
// so far. The engine keeps richer internal bookkeeping (per-ballot vote
// tallies) behind this view.
type Slot interface {
	ID() slotid.SlotID
	CreateTime() time.Time
	// CurrentBallot returns the highest ballot this node has cast for the
	// slot so far, and whether one has been cast yet.
	CurrentBallot() (Ballot, bool)
}

type slotView struct {
	id         slotid.SlotID
	createTime time.Time
	ballot     *Ballot
}

func (s *slotView) ID() slotid.SlotID { return s.id }

func (s *slotView) CreateTime() time.Time { return s.createTime }

func (s *slotView) CurrentBallot() (Ballot, bool) {
	if s.ballot == nil {
		return Ballot{}, false
	}
	return *s.ballot, true
}
