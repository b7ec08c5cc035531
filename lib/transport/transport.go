// Package transport defines the bidirectional text-frame transport
// contract: open/message/error/close events, a send/close handle, and
// both directions of connection establishment (dialer and acceptor).
package transport

// Events are the callbacks a Handle invokes as its lifecycle progresses.
// Any nil callback is simply not invoked.
type Events struct {
	OnOpen    func()
	OnMessage func(data string)
	OnError   func(err error)
	OnClose   func()
}

// Handle is one connected transport, either dialed out to a peer or
// accepted from an inbound listener. SetEvents may be called once, before
// the handle's first message could plausibly arrive, to attach its events
// after construction — this is how an Acceptor hands a caller the chance
// to learn a connection's identity before wiring its callbacks.
type Handle interface {
	Send(data string) error
	Close() error
	SetEvents(events Events)
}

// Dialer opens an outbound Handle to addr, wiring events to it
// immediately.
type Dialer interface {
	Dial(addr string, events Events) (Handle, error)
}

// Acceptor listens for inbound connections and hands each accepted
// Handle to onAccept before any event can fire on it, so onAccept can
// call SetEvents synchronously to wire up this specific connection.
type Acceptor interface {
	Listen(addr string, onAccept func(Handle)) error
	Stop() error
}
