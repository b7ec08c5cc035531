// Package dispatcher routes externalized values to channel subscribers
// and routes protocol frames to every connected peer and client. Each
// channel is an event name on a shared observable, fired in subscriber
// registration order as values externalize.
package dispatcher

import (
	"encoding/json"

	observable "github.com/GianlucaGuarini/go-observable"
	lru "github.com/hashicorp/golang-lru"
	logging "github.com/inconshreveable/log15"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/common"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/metrics"
	"github.com/bosnet-cast/fbanode/lib/registry"
	"github.com/bosnet-cast/fbanode/lib/scheduler"
	"github.com/bosnet-cast/fbanode/lib/slotid"
	"github.com/bosnet-cast/fbanode/lib/transport"
)

// Subscriber receives every externalized cast on its channel, in
// externalization order.
type Subscriber func(sender string, sha string, payload []byte)

// frame is the wire envelope for protocol messages exchanged between
// nodes, distinguished from other message tags a future transport might
// carry.
type frame struct {
	T string          `json:"t"`
	M json.RawMessage `json:"m"`
}

const frameTypeFBA = "fba"

// seenFramesCap bounds the inbound-frame dedup cache. A fully meshed
// cluster fans the same statement out across every edge; this keeps a
// node from re-running Process on a frame it already handled this round.
const seenFramesCap = 4096

// Dispatcher is the sole writer of the cast store and the sole owner of
// channel subscriptions.
type Dispatcher struct {
	store     *caststore.Store
	networkID []byte
	engine    fba.Engine
	registry  *registry.Registry
	actor     *scheduler.Actor
	log       logging.Logger
	metrics   *metrics.Metrics

	obs  *observable.Observable
	seen *lru.Cache
}

// SetMetrics attaches a metrics sink; nil (the default) disables
// instrumentation entirely.
func (d *Dispatcher) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

func New(store *caststore.Store, networkID []byte, engine fba.Engine, reg *registry.Registry, actor *scheduler.Actor, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.New(logging.Ctx{"component": "dispatcher"})
	}
	seen, _ := lru.New(seenFramesCap)
	return &Dispatcher{
		store:     store,
		networkID: networkID,
		engine:    engine,
		registry:  reg,
		actor:     actor,
		log:       log,
		obs:       observable.New(),
		seen:      seen,
	}
}

// Receive appends a subscriber for channel; subscribers accumulate for
// the lifetime of the process and are never removed.
func (d *Dispatcher) Receive(channel slotid.Channel, sub Subscriber) {
	d.obs.On(string(channel), func(args ...interface{}) {
		sender, _ := args[0].(string)
		sha, _ := args[1].(string)
		payload, _ := args[2].([]byte)
		sub(sender, sha, payload)
	})
}

// OnMessage implements fba.Listener: a protocol frame the engine wants
// fanned out to every connected peer and client. Wire serialization and
// transport sends are fire-and-forget; transport failures surface as
// separate events and never block here.
func (d *Dispatcher) OnMessage(m []byte) {
	wire, err := json.Marshal(frame{T: frameTypeFBA, M: json.RawMessage(m)})
	if err != nil {
		d.log.Error("failed to envelope outgoing frame", "err", err)
		return
	}

	for _, h := range d.registry.AllTransports() {
		go func(h transport.Handle) {
			if err := h.Send(string(wire)); err != nil {
				d.log.Debug("transport send failed", "err", err)
			}
		}(h)
	}
}

// OnValue implements fba.Listener: the engine externalized value for
// slot. It verifies, reclaims the prior slot, overwrites the cast store,
// and defers subscriber dispatch to a fresh scheduler turn.
func (d *Dispatcher) OnValue(slot slotid.SlotID, value string) {
	channel, sender, _, perr := slotid.Parse(slot)
	if perr != nil {
		d.log.Error("externalized slot has unparseable id", "slot", slot)
		return
	}

	c, cerr := cast.Deserialize([]byte(value))
	if cerr != nil {
		d.log.Info("invalid_cast: externalized value does not parse", "slot", slot, "err", cerr)
		if d.metrics != nil {
			d.metrics.CastsRejected.Add(1)
		}
		return
	}

	if !cast.Verify(d.networkID, sender, channel, c) {
		d.log.Info("invalid_cast: externalized value failed signature check", "slot", slot, "sender", sender)
		if d.metrics != nil {
			d.metrics.CastsRejected.Add(1)
		}
		return
	}

	if prior, found := d.store.Latest(channel, sender); found {
		priorSlot := slotid.New(channel, sender, prior.Sha)
		d.engine.Reclaim(priorSlot)
	}

	d.store.Put(channel, sender, c)

	if d.metrics != nil {
		d.metrics.CastsExternalized.Add(1)
	}

	d.actor.Post(func() {
		d.obs.Trigger(string(channel), sender, c.Sha, c.Pay)
	})
}

// ProcessInbound parses an inbound transport frame and, if it is an fba
// frame not already handled this round, feeds it to the engine. Any
// other tag is dropped silently; malformed JSON returns ErrParseFail for
// the caller to log. Neither aborts the connection.
func (d *Dispatcher) ProcessInbound(data string) *errors.Error {
	var f frame
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return errors.ErrParseFail.Clone().SetData("reason", err.Error())
	}

	if f.T != frameTypeFBA {
		return nil
	}

	digest := common.Hash([]string{string(f.M)})
	if _, dup := d.seen.Get(digest); dup {
		return nil
	}
	d.seen.Add(digest, struct{}{})

	return d.engine.Process(f.M)
}
