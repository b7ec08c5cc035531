// Package facade composes every core package into the node's public
// surface: identity, peer/client connection management, channel
// subscriptions, and send. It is the only package an embedding
// application imports directly.
package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	logging "github.com/inconshreveable/log15"

	"github.com/bosnet-cast/fbanode/lib/callbacks"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/dispatcher"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/metrics"
	"github.com/bosnet-cast/fbanode/lib/orchestrator"
	"github.com/bosnet-cast/fbanode/lib/quorum"
	"github.com/bosnet-cast/fbanode/lib/registry"
	"github.com/bosnet-cast/fbanode/lib/scheduler"
	"github.com/bosnet-cast/fbanode/lib/slotid"
	"github.com/bosnet-cast/fbanode/lib/transport"
)

// Events are the lifecycle callbacks the facade emits for connection
// changes. Any nil callback is simply not invoked.
type Events struct {
	PeerOpen    func(pk, url string)
	PeerClose   func(pk, url string)
	PeerError   func(pk, url string, err error)
	ClientOpen  func()
	ClientClose func()
	ClientError func(err error)
}

// SendCallback resolves Send: err nil and sha set on externalization,
// otherwise err names the failure.
type SendCallback func(err *errors.Error, sha string)

// ConnectCallback resolves PeerConnect: nil on first open, non-nil on
// first failure.
type ConnectCallback func(err *errors.Error)

// Node is the assembled facade: one FBA identity, wired to one
// protocol engine, one cast store, one dispatcher, and one transport.
type Node struct {
	local  *fba.LocalNode
	engine *fba.RefEngine
	store  *caststore.Store
	disp   *dispatcher.Dispatcher
	orch   *orchestrator.Orchestrator
	reg    *registry.Registry
	actor  *scheduler.Actor
	dialer transport.Dialer
	log    logging.Logger
	events Events

	mu       sync.Mutex
	acceptor transport.Acceptor
	cancel   context.CancelFunc
}

// listenerProxy breaks the construction cycle between the engine (which
// needs a Listener) and the dispatcher (which needs an Engine): it is
// handed to the engine first and pointed at the dispatcher once built.
type listenerProxy struct {
	mu sync.RWMutex
	d  *dispatcher.Dispatcher
}

func (p *listenerProxy) set(d *dispatcher.Dispatcher) {
	p.mu.Lock()
	p.d = d
	p.mu.Unlock()
}

func (p *listenerProxy) OnMessage(frame []byte) {
	p.mu.RLock()
	d := p.d
	p.mu.RUnlock()
	if d != nil {
		d.OnMessage(frame)
	}
}

func (p *listenerProxy) OnValue(slot slotid.SlotID, value string) {
	p.mu.RLock()
	d := p.d
	p.mu.RUnlock()
	if d != nil {
		d.OnValue(slot, value)
	}
}

// Config bundles the tunables and policy hooks New needs. NetworkID scopes
// every signature this node makes or checks to one network, so the same
// keypair can't cross-sign between two deployments of this code.
type Config struct {
	NetworkID       []byte
	RequestTimeout  time.Duration
	BallotRetryBase time.Duration
	PayloadVerifier callbacks.PayloadVerifier
	PayloadAcceptor callbacks.PayloadAcceptor
	Log             logging.Logger
	Metrics         *metrics.Metrics
}

// New assembles a Node around kp, dialing peers through dialer. Start
// must be called before PeerConnect/Listen/Send are used.
func New(kp *keypair.Full, dialer transport.Dialer, cfg Config, events Events) *Node {
	if cfg.Log == nil {
		cfg.Log = logging.New(logging.Ctx{"component": "facade"})
	}

	local := fba.NewLocalNode(kp)
	store := caststore.New()
	actor := scheduler.NewActor()
	reg := registry.New()
	cb := callbacks.New(store, cfg.NetworkID, cfg.BallotRetryBase, cfg.PayloadVerifier, cfg.PayloadAcceptor)

	proxy := &listenerProxy{}
	engine := fba.NewRefEngine(local, cb.Generator, cb.Verifier, cb.Acceptor, proxy)
	disp := dispatcher.New(store, cfg.NetworkID, engine, reg, actor, cfg.Log)
	proxy.set(disp)
	orch := orchestrator.New(kp, cfg.NetworkID, store, engine, cfg.RequestTimeout)

	if cfg.Metrics != nil {
		disp.SetMetrics(cfg.Metrics)
		orch.SetMetrics(cfg.Metrics)
		engine.SetMetrics(cfg.Metrics)
	}

	return &Node{
		local:  local,
		engine: engine,
		store:  store,
		disp:   disp,
		orch:   orch,
		reg:    reg,
		actor:  actor,
		dialer: dialer,
		log:    cfg.Log,
		events: events,
	}
}

// NewMetrics builds the node's metric set. Its counters/gauges go
// through go-kit's Prometheus adapter, which — as in the teacher —
// registers against Prometheus's global default registry; serve it
// with promhttp.Handler(), not a caller-supplied registry. Call at
// most once per process.
func NewMetrics() *metrics.Metrics {
	return metrics.New()
}

// Start runs the node's actor loop until ctx is canceled or Stop is
// called.
func (n *Node) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()
	go n.actor.Run(ctx)
}

// Stop tears down the actor loop and any active listener.
func (n *Node) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	acceptor := n.acceptor
	n.acceptor = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if acceptor != nil {
		acceptor.Stop()
	}
}

// PublicKey returns the node's current address.
func (n *Node) PublicKey() string { return n.local.PublicKey() }

// PrivateKey returns the node's current keypair.
func (n *Node) PrivateKey() *keypair.Full { return n.local.PrivateKey() }

// GenerateKeypair replaces the node's identity. Only safe to call before
// any peer has connected.
func (n *Node) GenerateKeypair(seed []byte) *errors.Error {
	return n.local.GenerateKeypair(seed)
}

// Quorums exposes the node's quorum-set configuration.
func (n *Node) Quorums() *quorum.Table { return n.local.Quorums() }

// Receive appends a subscriber for channel. Registration is posted to
// the actor loop so it can never interleave with an in-flight
// Trigger on the same channel.
func (n *Node) Receive(channel slotid.Channel, sub dispatcher.Subscriber) {
	n.actor.Post(func() {
		n.disp.Receive(channel, sub)
	})
}

// Send proposes payload on channel, resolving cb on externalization.
// Submission is posted to the actor loop alongside inbound frame
// processing and externalization, so a Send can never race a
// concurrent Process/OnValue call over the same slot.
func (n *Node) Send(ctx context.Context, channel slotid.Channel, payload []byte, cb SendCallback) {
	n.actor.Post(func() {
		n.orch.Send(ctx, channel, payload, orchestrator.SendCallback(cb))
	})
}

// PeerList returns a snapshot of registered peers.
func (n *Node) PeerList() []registry.Peer {
	return n.reg.Peers()
}

// PeerConnect dials pk at url, registering it with the peer registry and
// the engine's quorum membership on success. cb fires once: nil on first
// open, the dial error on first failure.
func (n *Node) PeerConnect(url, pk string, cb ConnectCallback) {
	var once sync.Once
	resolve := func(err *errors.Error) {
		once.Do(func() {
			if cb != nil {
				cb(err)
			}
		})
	}

	events := transport.Events{
		OnMessage: func(data string) {
			n.actor.Post(func() {
				if perr := n.disp.ProcessInbound(data); perr != nil {
					n.log.Debug("inbound frame rejected", "peer", pk, "err", perr)
				}
			})
		},
		OnError: func(err error) {
			resolve(errors.New(0, "peer dial failed").SetData("reason", err.Error()))
			n.actor.Post(func() {
				if n.events.PeerError != nil {
					n.events.PeerError(pk, url, err)
				}
			})
		},
		OnClose: func() {
			n.actor.Post(func() {
				if n.events.PeerClose != nil {
					n.events.PeerClose(pk, url)
				}
			})
		},
	}

	h, err := n.dialer.Dial(url, events)
	if err != nil {
		resolve(errors.New(0, "peer dial failed").SetData("reason", err.Error()))
		return
	}

	n.actor.Post(func() {
		n.reg.AddPeer(pk, url, h)
		n.local.Quorums().AddNode(pk)
		if n.events.PeerOpen != nil {
			n.events.PeerOpen(pk, url)
		}
	})
	resolve(nil)
}

// PeerDisconnect closes pk's transport, removes it from the registry, and
// removes it from the engine's quorum membership.
func (n *Node) PeerDisconnect(pk string) {
	n.actor.Post(func() {
		n.reg.RemovePeer(pk)
		n.local.Quorums().RemoveNode(pk)
	})
}

// Listen accepts inbound transport connections on port, replacing any
// prior listener. Accepted connections are appended to the client list
// and removed on close; they carry no public key.
func (n *Node) Listen(acceptor transport.Acceptor, port int) error {
	n.mu.Lock()
	prior := n.acceptor
	n.acceptor = acceptor
	n.mu.Unlock()

	if prior != nil {
		prior.Stop()
	}

	addr := fmt.Sprintf(":%d", port)
	return acceptor.Listen(addr, func(h transport.Handle) {
		h.SetEvents(transport.Events{
			OnMessage: func(data string) {
				n.actor.Post(func() {
					if perr := n.disp.ProcessInbound(data); perr != nil {
						n.log.Debug("inbound frame rejected", "err", perr)
					}
				})
			},
			OnError: func(err error) {
				n.actor.Post(func() {
					if n.events.ClientError != nil {
						n.events.ClientError(err)
					}
				})
			},
			OnClose: func() {
				n.actor.Post(func() {
					n.reg.RemoveClient(h)
					if n.events.ClientClose != nil {
						n.events.ClientClose()
					}
				})
			},
		})

		n.actor.Post(func() {
			n.reg.AddClient(h)
			if n.events.ClientOpen != nil {
				n.events.ClientOpen()
			}
		})
	})
}
