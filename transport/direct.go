package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Direct is an in-memory Transport that can multiplex any number of
// named clients, generalizing a single synchronous in-memory channel
// pair to many. It is intended for tests and for embedding a client and
// a server in the same process.
type Direct struct {
	mu      sync.Mutex
	clients map[ClientID]chan []byte
	in      chan ClientMessage
	closed  bool
}

// NewDirect creates an empty in-memory hub. Clients attach to it with
// Connect.
func NewDirect() *Direct {
	return &Direct{
		clients: make(map[ClientID]chan []byte),
		in:      make(chan ClientMessage, 64),
	}
}

func (d *Direct) ClientMessages() <-chan ClientMessage { return d.in }

// Send delivers payload to the named client's Peer.
func (d *Direct) Send(ctx context.Context, id ClientID, payload []byte) error {
	d.mu.Lock()
	ch, ok := d.clients[id]
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	if !ok {
		return fmt.Errorf("transport: unknown client %q", id)
	}
	cp := append([]byte(nil), payload...)
	select {
	case ch <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the hub down, closing every connected Peer's receive side
// and the inbound message channel.
func (d *Direct) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.in)
	for id, ch := range d.clients {
		delete(d.clients, id)
		close(ch)
	}
	return nil
}

// Connect registers a new client id with the hub and returns the Peer
// that client side uses to talk to the hub.
func (d *Direct) Connect(id ClientID) *Peer {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan []byte, 16)
	d.clients[id] = ch
	return &Peer{id: id, hub: d, recv: ch}
}

// Disconnect removes a client from the hub, as if its Peer had hung up.
func (d *Direct) Disconnect(id ClientID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.clients[id]; ok {
		delete(d.clients, id)
		close(ch)
	}
}

// Peer is the client-side handle for a Direct hub connection.
type Peer struct {
	id   ClientID
	hub  *Direct
	recv <-chan []byte
}

// Send delivers payload to the hub, tagged with this peer's client id.
func (p *Peer) Send(payload []byte) (err error) {
	cp := append([]byte(nil), payload...)
	p.hub.mu.Lock()
	closed := p.hub.closed
	p.hub.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	defer func() {
		if r := recover(); r != nil {
			err = io.ErrClosedPipe
		}
	}()
	p.hub.in <- ClientMessage{ClientID: p.id, Payload: cp}
	return nil
}

// Recv returns the next payload the hub has sent to this peer, or
// io.EOF once the hub has closed the connection.
func (p *Peer) Recv() ([]byte, error) {
	msg, ok := <-p.recv
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

// Close disconnects this peer from the hub.
func (p *Peer) Close() error {
	p.hub.Disconnect(p.id)
	return nil
}
