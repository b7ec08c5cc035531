// Package orchestrator translates a Send call into a protocol request,
// tracking the pending slot until the engine externalizes a value (or
// the request timeout elapses).
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/metrics"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// SendCallback resolves a Send call: err is nil and sha is set once the
// cast has been externalized; otherwise err names the failure.
type SendCallback func(err *errors.Error, sha string)

// Orchestrator owns no state of its own beyond what it needs to read the
// cast store for chain continuity. Store mutation and subscriber fan-out
// are exclusively the dispatcher's job.
type Orchestrator struct {
	self      *keypair.Full
	networkID []byte
	store     *caststore.Store
	engine    fba.Engine
	timeout   time.Duration
	metrics   *metrics.Metrics
}

func New(self *keypair.Full, networkID []byte, store *caststore.Store, engine fba.Engine, timeout time.Duration) *Orchestrator {
	return &Orchestrator{self: self, networkID: networkID, store: store, engine: engine, timeout: timeout}
}

// SetMetrics attaches a metrics sink; nil (the default) disables
// instrumentation entirely.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// Send validates channel and payload, chains the new cast onto the
// sender's latest entry for channel, and submits it to the protocol
// engine, resolving cb once the engine externalizes a value for the slot.
func (o *Orchestrator) Send(ctx context.Context, channel slotid.Channel, payload []byte, cb SendCallback) {
	if strings.Contains(string(channel), ":") {
		cb(errors.ErrInvalidChannel, "")
		return
	}
	if payload == nil {
		cb(errors.ErrInvalidPayload, "")
		return
	}

	prv := o.store.Prv(channel, o.self.Address())

	c, cerr := cast.Generate(o.networkID, o.self, channel, prv, payload)
	if cerr != nil {
		cb(cerr, "")
		return
	}

	encoded, cerr := cast.Serialize(c)
	if cerr != nil {
		cb(cerr, "")
		return
	}

	slot := slotid.New(channel, o.self.Address(), c.Sha)

	if o.metrics != nil {
		o.metrics.CastsSent.Add(1)
	}

	o.engine.Request(ctx, slot, string(encoded), o.timeout, func(err *errors.Error, value string) {
		if err != nil {
			cb(err, "")
			return
		}

		externalized, derr := cast.Deserialize([]byte(value))
		if derr != nil {
			cb(derr, "")
			return
		}
		cb(nil, externalized.Sha)
	})
}
