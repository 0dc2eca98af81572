// Package server implements the multi-client heart of this module: the
// Client Manager, which tracks per-client in-flight request state, and
// the Coordinator, which drives a Transport and routes messages to and
// from registered handlers.
package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/transport"
)

// ClientID identifies one of the peers a Coordinator multiplexes.
type ClientID = transport.ClientID

// InboundEntry tracks a request a client sent to us that is still being
// handled. Its presence in the manager's tables is equivalent to "the
// handler's goroutine for this request has not yet finished, and the
// request has not been cancelled."
type InboundEntry struct {
	Method string
	Cancel context.CancelFunc
}

// OutboundResult is the answer to a request we sent to a client: either
// a raw JSON result or a JSON-RPC error, never both.
type OutboundResult struct {
	Result json.RawMessage
	Err    *code.Error
}

// OutboundEntry tracks a request we sent to a client that is still
// awaiting a response. Resolve may be called at most once; later calls
// are no-ops, which is what makes "resolve a request to a client" a
// single-resolution operation even if a duplicate or late response
// arrives.
type OutboundEntry struct {
	Method string

	ch   chan OutboundResult
	once sync.Once
}

func newOutboundEntry(method string) *OutboundEntry {
	return &OutboundEntry{Method: method, ch: make(chan OutboundResult, 1)}
}

// Wait blocks until the entry is resolved or ctx ends.
func (e *OutboundEntry) Wait(ctx context.Context) (OutboundResult, error) {
	select {
	case r := <-e.ch:
		return r, nil
	case <-ctx.Done():
		return OutboundResult{}, ctx.Err()
	}
}

// resolve delivers r to the entry's single waiter. It reports whether
// this call was the one that resolved the entry.
func (e *OutboundEntry) resolve(r OutboundResult) (resolved bool) {
	e.once.Do(func() {
		e.ch <- r
		resolved = true
	})
	return resolved
}

type clientState struct {
	inbound  map[string]*InboundEntry
	outbound map[string]*OutboundEntry
}

func newClientState() *clientState {
	return &clientState{
		inbound:  make(map[string]*InboundEntry),
		outbound: make(map[string]*OutboundEntry),
	}
}

// ClientManager owns the per-client inbound/outbound tracking tables
// described by the coordinator's data model. All of its methods are
// safe for concurrent use; a single ClientManager is meant to be shared
// by every goroutine a Coordinator spawns.
type ClientManager struct {
	mu      sync.Mutex
	clients map[ClientID]*clientState
}

// NewClientManager returns an empty ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{clients: make(map[ClientID]*clientState)}
}

// RegisterClient ensures id has an entry in the manager's tables. It is
// idempotent.
func (m *ClientManager) RegisterClient(id ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(id)
}

func (m *ClientManager) ensureLocked(id ClientID) *clientState {
	cs, ok := m.clients[id]
	if !ok {
		cs = newClientState()
		m.clients[id] = cs
	}
	return cs
}

// HasClient reports whether id is currently registered.
func (m *ClientManager) HasClient(id ClientID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.clients[id]
	return ok
}

// ClientIDs returns the currently registered client ids, in no
// particular order.
func (m *ClientManager) ClientIDs() []ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]ClientID, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	return ids
}

// TrackInbound records that client is now running a handler for
// requestID/method, cancellable via cancel. It reports an error if
// requestID is already tracked for this client: per this module's
// duplicate-request-id policy, a second request sharing an id with one
// already in flight is rejected rather than silently overwriting the
// first.
func (m *ClientManager) TrackInbound(id ClientID, requestID, method string, cancel context.CancelFunc) *code.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := m.ensureLocked(id)
	if _, dup := cs.inbound[requestID]; dup {
		return code.Errorf(code.InvalidRequest, "duplicate request id %q", requestID)
	}
	cs.inbound[requestID] = &InboundEntry{Method: method, Cancel: cancel}
	return nil
}

// UntrackInbound removes the inbound entry for requestID, if any. It is
// called once the handler goroutine for that request has finished,
// regardless of outcome.
func (m *ClientManager) UntrackInbound(id ClientID, requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs, ok := m.clients[id]; ok {
		delete(cs.inbound, requestID)
	}
}

// CancelInbound removes and cancels the running handler for requestID,
// if any is tracked, and reports whether one was found. The entry is
// removed from the table immediately; UntrackInbound is a harmless
// no-op when the handler goroutine later finishes and tries to remove
// its own (already-gone) entry.
func (m *ClientManager) CancelInbound(id ClientID, requestID string) bool {
	m.mu.Lock()
	cs, ok := m.clients[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	entry, ok := cs.inbound[requestID]
	if ok {
		delete(cs.inbound, requestID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	entry.Cancel()
	return true
}

// TrackOutbound creates and records an OutboundEntry for a request we
// are about to send to id.
func (m *ClientManager) TrackOutbound(id ClientID, requestID, method string) *OutboundEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := m.ensureLocked(id)
	entry := newOutboundEntry(method)
	cs.outbound[requestID] = entry
	return entry
}

// UntrackOutbound removes the outbound entry for requestID. Called in
// every exit path of a send: success, error, timeout, or cancellation.
func (m *ClientManager) UntrackOutbound(id ClientID, requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs, ok := m.clients[id]; ok {
		delete(cs.outbound, requestID)
	}
}

// ResolveOutbound resolves the outbound entry for requestID with r. It
// reports whether a tracked, unresolved entry was found and this call
// resolved it; a response for an unknown or already-resolved request is
// reported as not resolved so the caller can log it instead of blocking.
func (m *ClientManager) ResolveOutbound(id ClientID, requestID string, r OutboundResult) bool {
	m.mu.Lock()
	cs, ok := m.clients[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	entry, ok := cs.outbound[requestID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return entry.resolve(r)
}

// clientTeardownError is the result CleanupClient and CleanupAllClients
// resolve every outstanding outbound entry of a torn-down client with,
// so a goroutine blocked in OutboundEntry.Wait gets a prompt error
// instead of running out its own timeout.
func clientTeardownError() OutboundResult {
	return OutboundResult{Err: code.Errorf(code.Cancelled, "client disconnected")}
}

// CleanupClient cancels every inbound handler still running for id,
// resolves every outbound entry awaiting a response from id with a
// cancellation error, and forgets the client entirely.
func (m *ClientManager) CleanupClient(id ClientID) {
	m.mu.Lock()
	cs, ok := m.clients[id]
	if ok {
		delete(m.clients, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, entry := range cs.inbound {
		entry.Cancel()
	}
	for _, entry := range cs.outbound {
		entry.resolve(clientTeardownError())
	}
}

// CleanupAllClients tears every registered client down.
func (m *ClientManager) CleanupAllClients() {
	m.mu.Lock()
	all := m.clients
	m.clients = make(map[ClientID]*clientState)
	m.mu.Unlock()
	for _, cs := range all {
		for _, entry := range cs.inbound {
			entry.Cancel()
		}
		for _, entry := range cs.outbound {
			entry.resolve(clientTeardownError())
		}
	}
}

// InboundCount reports how many in-flight inbound requests are tracked
// for id. It exists for tests asserting the post-stop invariant that
// every table is empty.
func (m *ClientManager) InboundCount(id ClientID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.clients[id]
	if !ok {
		return 0
	}
	return len(cs.inbound)
}

// OutboundCount reports how many in-flight outbound requests are
// tracked for id.
func (m *ClientManager) OutboundCount(id ClientID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.clients[id]
	if !ok {
		return 0
	}
	return len(cs.outbound)
}
