// Package wstransport implements transport.Dialer/Acceptor over
// golang.org/x/net/websocket, with routes mounted on a
// github.com/gorilla/mux router.
package wstransport

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"

	"github.com/bosnet-cast/fbanode/lib/transport"
)

// handle wraps a single websocket.Conn as a transport.Handle. Its events
// are set once, synchronously, before pump starts reading.
type handle struct {
	conn *websocket.Conn

	mu     sync.Mutex
	events transport.Events
	closed bool
}

func newHandle(conn *websocket.Conn) *handle {
	return &handle{conn: conn}
}

func (h *handle) SetEvents(events transport.Events) {
	h.mu.Lock()
	h.events = events
	h.mu.Unlock()
}

// pump reads frames until the connection errors or closes. Callers that
// need it to hold a goroutine open (an HTTP handler, say) can call it
// directly instead of backgrounding it.
func (h *handle) pump() {
	for {
		var data string
		if err := websocket.Message.Receive(h.conn, &data); err != nil {
			h.mu.Lock()
			already := h.closed
			h.closed = true
			events := h.events
			h.mu.Unlock()

			if !already {
				if events.OnError != nil {
					events.OnError(err)
				}
				if events.OnClose != nil {
					events.OnClose()
				}
			}
			return
		}

		h.mu.Lock()
		onMessage := h.events.OnMessage
		h.mu.Unlock()
		if onMessage != nil {
			onMessage(data)
		}
	}
}

func (h *handle) Send(data string) error {
	return websocket.Message.Send(h.conn, data)
}

func (h *handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()
	return h.conn.Close()
}

// Transport is both a transport.Dialer and a transport.Acceptor.
type Transport struct {
	router   *mux.Router
	listener net.Listener

	mu     sync.Mutex
	server *http.Server
}

func New() *Transport {
	return &Transport{router: mux.NewRouter()}
}

// Dial implements transport.Dialer by opening a websocket client
// connection to addr (a ws:// or wss:// URL).
func (t *Transport) Dial(addr string, events transport.Events) (transport.Handle, error) {
	origin := "http://localhost/"
	conn, err := websocket.Dial(addr, "", origin)
	if err != nil {
		return nil, err
	}

	h := newHandle(conn)
	h.SetEvents(events)
	go h.pump()

	if events.OnOpen != nil {
		events.OnOpen()
	}
	return h, nil
}

// Listen implements transport.Acceptor: it starts an HTTP server on addr
// whose sole route upgrades to a websocket, handing each accepted
// connection to onAccept before pump starts so onAccept can wire that
// connection's events first.
func (t *Transport) Listen(addr string, onAccept func(transport.Handle)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	t.router.Handle("/fba", websocket.Handler(func(conn *websocket.Conn) {
		h := newHandle(conn)
		onAccept(h)
		h.pump() // keeps this handler goroutine alive for the connection's life
	}))

	server := &http.Server{Handler: t.router}

	t.mu.Lock()
	t.listener = ln
	t.server = server
	t.mu.Unlock()

	go server.Serve(ln)
	return nil
}

func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.server == nil {
		return nil
	}
	err := t.server.Close()
	t.server = nil
	return err
}

var _ fmt.Stringer = (*Transport)(nil)

func (t *Transport) String() string {
	return "wstransport.Transport"
}
