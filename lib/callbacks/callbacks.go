// Package callbacks implements the three pure functions that plug into
// the FBA engine: generator, verifier, and acceptor. They are the only
// place cast semantics (hash-chain continuity, signature checks, the
// retry rate gate) are bound to the engine's otherwise-opaque ballots.
package callbacks

import (
	"time"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// PayloadVerifier is the application-supplied global validity check for a
// cast's payload, defaulting to always-true.
type PayloadVerifier func(sender string, channel slotid.Channel, payload []byte) bool

// PayloadAcceptor is the application-supplied local acceptance check for a
// cast's payload, defaulting to always-true.
type PayloadAcceptor func(sender string, channel slotid.Channel, payload []byte) bool

func AlwaysTrueVerifier(string, slotid.Channel, []byte) bool { return true }
func AlwaysTrueAcceptor(string, slotid.Channel, []byte) bool { return true }

// Callbacks holds the bound generator/verifier/acceptor triple and the
// state (cast store, retry pacing, payload policy) they close over.
type Callbacks struct {
	store           *caststore.Store
	networkID       []byte
	retryBase       time.Duration
	payloadVerifier PayloadVerifier
	payloadAcceptor PayloadAcceptor
}

// New builds a Callbacks bound to store. A nil payload policy defaults to
// always-true. networkID scopes every signature check to the caller's
// network, per cast.Verify.
func New(store *caststore.Store, networkID []byte, retryBase time.Duration, payloadVerifier PayloadVerifier, payloadAcceptor PayloadAcceptor) *Callbacks {
	if payloadVerifier == nil {
		payloadVerifier = AlwaysTrueVerifier
	}
	if payloadAcceptor == nil {
		payloadAcceptor = AlwaysTrueAcceptor
	}
	return &Callbacks{store: store, networkID: networkID, retryBase: retryBase, payloadVerifier: payloadVerifier, payloadAcceptor: payloadAcceptor}
}

// Generator implements fba.BallotGenerator: monotone increase on every
// retry.
func (c *Callbacks) Generator(slot fba.Slot, x string) fba.Ballot {
	if current, ok := slot.CurrentBallot(); ok {
		return fba.Ballot{N: current.N + 1, X: x}
	}
	return fba.Ballot{N: 0, X: x}
}

// Verifier implements fba.BallotVerifier: cast well-formedness, the
// application payload policy, and the rate gate, which rejects ballot n
// until retryBase*n has passed since the slot was created.
func (c *Callbacks) Verifier(slot fba.Slot, ballot fba.Ballot, node fba.Node) bool {
	channel, sender, _, perr := slotid.Parse(slot.ID())
	if perr != nil {
		return false
	}

	ct, cerr := cast.Deserialize([]byte(ballot.X))
	if cerr != nil {
		return false
	}

	if !cast.Verify(c.networkID, sender, channel, ct) {
		return false
	}

	if !c.payloadVerifier(sender, channel, ct.Pay) {
		return false
	}

	gate := slot.CreateTime().Add(time.Duration(ballot.N) * c.retryBase)
	return !time.Now().Before(gate)
}

// Acceptor implements fba.BallotAcceptor: chain continuity against the
// cast store plus the application payload acceptance policy. Assumes
// Verifier already passed.
func (c *Callbacks) Acceptor(slot fba.Slot, ballot fba.Ballot, node fba.Node) bool {
	channel, sender, _, perr := slotid.Parse(slot.ID())
	if perr != nil {
		return false
	}

	ct, cerr := cast.Deserialize([]byte(ballot.X))
	if cerr != nil {
		return false
	}

	if ct.Prv != "" {
		cur, found := c.store.Latest(channel, sender)
		if !found || cur.Sha != ct.Prv {
			return false
		}
	}

	return c.payloadAcceptor(sender, channel, ct.Pay)
}
