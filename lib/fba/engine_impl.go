package fba

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/metrics"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// statement is the wire shape of a single node's ballot vote.
type statement struct {
	Slot   slotid.SlotID `json:"slot"`
	Ballot Ballot        `json:"ballot"`
	Sender string        `json:"sender"`
}

type refSlot struct {
	mu         sync.Mutex
	id         slotid.SlotID
	createTime time.Time
	ballot     *Ballot // highest ballot this node has itself cast
	votes      map[string]struct{}
	x          string
	announced  bool
	resolved   bool
	cb         RequestCallback
	cbOnce     sync.Once
	cancelFns  []func()
}

func (s *refSlot) view() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &slotView{id: s.id, createTime: s.createTime, ballot: s.ballot}
}

func (s *refSlot) resolve(err *errors.Error, value string) {
	s.cbOnce.Do(func() {
		s.mu.Lock()
		s.resolved = true
		cb := s.cb
		fns := s.cancelFns
		s.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
		if cb != nil {
			cb(err, value)
		}
	})
}

// RefEngine is a minimal federated-voting implementation of Engine: each
// slot keeps one set of the nodes that have voted on it (whatever the
// ballot n), checked against the local node's quorum.Table on every
// update.
type RefEngine struct {
	node      Node
	generator BallotGenerator
	verifier  BallotVerifier
	acceptor  BallotAcceptor
	listener  Listener
	metrics   *metrics.Metrics

	mu    sync.Mutex
	slots map[slotid.SlotID]*refSlot
}

// SetMetrics attaches a metrics sink; nil (the default) disables
// instrumentation entirely.
func (e *RefEngine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

func NewRefEngine(node Node, generator BallotGenerator, verifier BallotVerifier, acceptor BallotAcceptor, listener Listener) *RefEngine {
	return &RefEngine{
		node:      node,
		generator: generator,
		verifier:  verifier,
		acceptor:  acceptor,
		listener:  listener,
		slots:     map[slotid.SlotID]*refSlot{},
	}
}

func (e *RefEngine) getOrCreate(id slotid.SlotID) *refSlot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, found := e.slots[id]; found {
		return s
	}
	s := &refSlot{id: id, createTime: time.Now(), votes: map[string]struct{}{}}
	e.slots[id] = s
	if e.metrics != nil {
		e.metrics.ActiveSlots.Add(1)
	}
	return s
}

func (e *RefEngine) Reclaim(id slotid.SlotID) {
	e.mu.Lock()
	_, found := e.slots[id]
	delete(e.slots, id)
	e.mu.Unlock()

	if found && e.metrics != nil {
		e.metrics.ActiveSlots.Add(-1)
	}
}

// Request implements Engine.Request: it casts an initial ballot {n:0,x},
// retries with an escalating n (attempt n+1 runs n+1 seconds after
// attempt n), each ballot gated by the verifier's rate check, and
// resolves cb on externalization or timeout. ctx is not consulted.
func (e *RefEngine) Request(ctx context.Context, id slotid.SlotID, x string, timeout time.Duration, cb RequestCallback) {
	slot := e.getOrCreate(id)

	slot.mu.Lock()
	slot.cb = cb
	slot.mu.Unlock()

	timeoutTimer := time.AfterFunc(timeout, func() {
		slot.resolve(errors.ErrRequestTimeout, "")
	})
	slot.mu.Lock()
	slot.cancelFns = append(slot.cancelFns, func() { timeoutTimer.Stop() })
	slot.mu.Unlock()

	var attempt func(n int)
	attempt = func(n int) {
		slot.mu.Lock()
		if slot.resolved {
			slot.mu.Unlock()
			return
		}
		slot.mu.Unlock()

		view := slot.view()
		ballot := e.generator(view, x)

		if e.verifier(view, ballot, e.node) {
			slot.mu.Lock()
			slot.ballot = &ballot
			slot.mu.Unlock()

			e.castOwnVote(slot, ballot)
		}

		next := time.AfterFunc(time.Duration(n+1)*time.Second, func() { attempt(n + 1) })
		slot.mu.Lock()
		slot.cancelFns = append(slot.cancelFns, func() { next.Stop() })
		slot.mu.Unlock()
	}

	attempt(0)
}

// castOwnVote runs the acceptor for a ballot this node itself is
// (re-)proposing and, the first time it locally accepts a value for this
// slot, broadcasts that acceptance and checks for externalization.
func (e *RefEngine) castOwnVote(slot *refSlot, ballot Ballot) {
	slot.mu.Lock()
	resolved := slot.resolved
	slot.mu.Unlock()
	if resolved {
		return
	}

	view := slot.view()
	if !e.acceptor(view, ballot, e.node) {
		return
	}
	e.announce(slot, ballot)
}

func (e *RefEngine) announce(slot *refSlot, ballot Ballot) {
	slot.mu.Lock()
	if slot.announced || slot.resolved {
		slot.mu.Unlock()
		return
	}
	slot.announced = true
	slot.x = ballot.X
	slot.votes[e.node.PublicKey()] = struct{}{}
	slot.mu.Unlock()

	frame, err := json.Marshal(statement{Slot: slot.id, Ballot: ballot, Sender: e.node.PublicKey()})
	if err == nil {
		e.listener.OnMessage(frame)
	}

	e.checkQuorum(slot)
}

func (e *RefEngine) checkQuorum(slot *refSlot) {
	slot.mu.Lock()
	if slot.resolved {
		slot.mu.Unlock()
		return
	}
	votes := make(map[string]struct{}, len(slot.votes))
	for k := range slot.votes {
		votes[k] = struct{}{}
	}
	x := slot.x
	slot.mu.Unlock()

	if !e.node.Quorums().AnySatisfied(votes) {
		return
	}

	slot.resolve(nil, x)
	e.listener.OnValue(slot.id, x)
}

// Process implements Engine.Process: it verifies an inbound statement,
// tallies its sender's vote, optionally adds this node's own acceptance,
// and externalizes once a quorum set is satisfied.
func (e *RefEngine) Process(frame []byte) *errors.Error {
	var st statement
	if err := json.Unmarshal(frame, &st); err != nil {
		return errors.ErrParseFail.Clone().SetData("reason", err.Error())
	}
	if st.Slot == "" || st.Sender == "" {
		return errors.ErrParseFail.Clone().SetData("reason", "missing slot or sender")
	}

	slot := e.getOrCreate(st.Slot)
	view := slot.view()

	if !e.verifier(view, st.Ballot, e.node) {
		return nil
	}

	slot.mu.Lock()
	if slot.resolved {
		slot.mu.Unlock()
		return nil
	}
	slot.votes[st.Sender] = struct{}{}
	slot.x = st.Ballot.X
	slot.mu.Unlock()

	e.checkQuorum(slot)

	slot.mu.Lock()
	resolved := slot.resolved
	slot.mu.Unlock()
	if resolved {
		return nil
	}

	e.castOwnVote(slot, st.Ballot)
	return nil
}
