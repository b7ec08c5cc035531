// Package memtransport implements transport.Dialer/Acceptor entirely
// in-process with buffered channels, standing in for real sockets in
// tests that want a fully meshed cluster without binding anything.
package memtransport

import (
	"fmt"
	"sync"

	"github.com/bosnet-cast/fbanode/lib/transport"
)

// handle is one end of an in-memory, full-duplex pipe. Its events are
// set once, synchronously, by whoever receives it from Dial or onAccept,
// before the pump goroutine that delivers to them is started.
type handle struct {
	out chan string

	mu     sync.Mutex
	events transport.Events
	closed bool
}

func (h *handle) SetEvents(events transport.Events) {
	h.mu.Lock()
	h.events = events
	h.mu.Unlock()
}

func (h *handle) Send(data string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("memtransport: send on closed handle")
	}
	h.mu.Unlock()

	h.out <- data
	return nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	onClose := h.events.OnClose
	h.mu.Unlock()

	close(h.out)
	if onClose != nil {
		onClose()
	}
	return nil
}

// runPump delivers every value read from in to this handle's current
// OnMessage, until in is closed by the peer's Close.
func (h *handle) runPump(in chan string) {
	for data := range in {
		h.mu.Lock()
		onMessage := h.events.OnMessage
		h.mu.Unlock()
		if onMessage != nil {
			onMessage(data)
		}
	}
}

func newPipe() (*handle, *handle) {
	ab := make(chan string, 64)
	ba := make(chan string, 64)
	return &handle{out: ab}, &handle{out: ba}
}

// Network is a process-wide registry of listening addresses, standing in
// for DNS/port-binding in the in-memory transport.
type Network struct {
	mu        sync.Mutex
	listeners map[string]func(transport.Events) (*handle, error)
}

func NewNetwork() *Network {
	return &Network{listeners: map[string]func(transport.Events) (*handle, error){}}
}

// Dial implements transport.Dialer.
func (n *Network) Dial(addr string, events transport.Events) (transport.Handle, error) {
	n.mu.Lock()
	dial, found := n.listeners[addr]
	n.mu.Unlock()

	if !found {
		return nil, fmt.Errorf("memtransport: no listener at %q", addr)
	}

	h, err := dial(events)
	if err != nil {
		return nil, err
	}
	if events.OnOpen != nil {
		events.OnOpen()
	}
	return h, nil
}

// Listen implements transport.Acceptor: every successful Dial to addr
// produces a fresh accepted Handle passed to onAccept before either side
// of the pipe starts delivering messages, so onAccept can call
// h.SetEvents synchronously without missing anything.
func (n *Network) Listen(addr string, onAccept func(transport.Handle)) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, found := n.listeners[addr]; found {
		return fmt.Errorf("memtransport: address %q already listening", addr)
	}

	n.listeners[addr] = func(clientEvents transport.Events) (*handle, error) {
		clientSide, serverSide := newPipe()
		clientSide.SetEvents(clientEvents)
		onAccept(serverSide)

		go clientSide.runPump(serverSide.out)
		go serverSide.runPump(clientSide.out)
		return clientSide, nil
	}
	return nil
}

func (n *Network) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = map[string]func(transport.Events) (*handle, error){}
	return nil
}

func (n *Network) StopListening(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, addr)
}
