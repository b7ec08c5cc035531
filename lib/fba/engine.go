// Package fba defines the external protocol-engine contract (Process,
// Request, Reclaim, the message/value events, and the Node subobject)
// and ships one concrete implementation of it: a minimal federated-voting
// engine over a generic {n,x} ballot. The core packages (callbacks,
// orchestrator, dispatcher, registry) depend only on the interfaces in
// this file.
package fba

import (
	"context"
	"time"

	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// BallotGenerator returns the next ballot to cast for slot proposing x.
type BallotGenerator func(slot Slot, x string) Ballot

// BallotVerifier checks global validity of ballot within slot: cast
// well-formedness, the application's payload policy, and the retry rate
// gate. Returning false causes the engine to reject the ballot outright.
type BallotVerifier func(slot Slot, ballot Ballot, node Node) bool

// BallotAcceptor checks local acceptance of an already-verified ballot:
// chain continuity against the cast store and the application's payload
// acceptance policy. Refusal is not fatal: the node may still adopt the
// value later via externalization from its peers.
type BallotAcceptor func(slot Slot, ballot Ballot, node Node) bool

// Listener receives the two event kinds the engine emits.
type Listener interface {
	// OnMessage is called with a protocol frame that must be fanned out
	// to every connected peer and client.
	OnMessage(frame []byte)
	// OnValue is called once per slot, when the engine externalizes a
	// value for it.
	OnValue(slot slotid.SlotID, value string)
}

// RequestCallback is invoked exactly once to resolve a Request call, with
// either an error (surfaced verbatim from whatever the engine failed
// with) or the externalized value string.
type RequestCallback func(err *errors.Error, value string)

// Engine is the external protocol-engine contract.
type Engine interface {
	// Process feeds an inbound protocol frame to the engine.
	Process(frame []byte) *errors.Error

	// Request proposes value for slot and resolves cb once the slot is
	// externalized or the timeout elapses.
	Request(ctx context.Context, slot slotid.SlotID, value string, timeout time.Duration, cb RequestCallback)

	// Reclaim releases engine-internal state for a terminal slot.
	Reclaim(slot slotid.SlotID)
}
