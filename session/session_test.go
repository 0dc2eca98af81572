package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/server"
	"github.com/davenpi/conduit-mcp/session"
	"github.com/davenpi/conduit-mcp/transport"
)

const serverPeer server.ClientID = "server"

// newTestSession starts a Coordinator and wraps it in a Session. Callers
// must defer session.Close() themselves, declared after any deferred
// leaktest.Check call (defers run LIFO, so Close must run first) or the
// leak check will see the coordinator's own still-running goroutines as
// leaked. Initialize failures stop the coordinator on their own, making
// a redundant Close a harmless no-op.
func newTestSession(t *testing.T) (*session.Session, *transport.Peer) {
	t.Helper()
	hub := transport.NewDirect()
	peer := hub.Connect(serverPeer)
	coord := server.NewCoordinator(hub, nil)
	coord.Start(context.Background())

	s := session.New(coord, serverPeer,
		protocol.Implementation{Name: "test-client", Version: "1.0.0"},
		protocol.ClientCapabilities{},
	)
	return s, peer
}

func successResult() map[string]any {
	return map[string]any{
		"protocolVersion": protocol.ProtocolVersion,
		"capabilities":    map[string]any{"logging": map[string]any{}},
		"serverInfo":      map[string]any{"name": "test-server", "version": "1.0.0"},
	}
}

// respondOnce reads one request off peer and replies with result.
func respondOnce(t *testing.T, peer *transport.Peer, result map[string]any) {
	t.Helper()
	raw, err := peer.Recv()
	require.NoError(t, err)

	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "initialize", req.Method)

	reply, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(req.ID),
		"result":  result,
	})
	require.NoError(t, err)
	require.NoError(t, peer.Send(reply))
}

func TestInitializePerformsCompleteHandshake(t *testing.T) {
	defer leaktest.Check(t)()

	s, peer := newTestSession(t)
	defer s.Close()

	done := make(chan *protocol.InitializeResult, 1)
	go func() {
		result, err := s.Initialize(context.Background(), time.Second)
		if !assert.NoError(t, err) {
			done <- nil
			return
		}
		done <- result
	}()

	respondOnce(t, peer, successResult())

	notification, err := peer.Recv()
	require.NoError(t, err)
	var note struct {
		Method string          `json:"method"`
		ID     json.RawMessage `json:"id"`
	}
	require.NoError(t, json.Unmarshal(notification, &note))
	assert.Equal(t, "notifications/initialized", note.Method)
	assert.Empty(t, note.ID, "notification should carry no id")

	result := <-done
	require.NotNil(t, result)
	assert.Equal(t, "test-server", result.ServerInfo.Name)
	assert.True(t, s.Initialized(), "session should report initialized")
}

func TestInitializeIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	s, peer := newTestSession(t)
	defer s.Close()

	go func() {
		respondOnce(t, peer, successResult())
		peer.Recv() // the initialized notification
	}()

	result1, err := s.Initialize(context.Background(), time.Second)
	require.NoError(t, err)
	result2, err := s.Initialize(context.Background(), time.Second)
	require.NoError(t, err)
	result3, err := s.Initialize(context.Background(), time.Second)
	require.NoError(t, err)

	assert.Same(t, result1, result2, "expected identical result pointers across idempotent calls")
	assert.Same(t, result2, result3, "expected identical result pointers across idempotent calls")
}

func TestInitializeConcurrentCallsCollapseToOneHandshake(t *testing.T) {
	defer leaktest.Check(t)()

	s, peer := newTestSession(t)
	defer s.Close()

	go func() {
		respondOnce(t, peer, successResult())
		peer.Recv() // the initialized notification
	}()

	var wg sync.WaitGroup
	results := make([]*protocol.InitializeResult, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.Initialize(context.Background(), time.Second)
			if assert.NoError(t, err) {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	assert.Same(t, results[0], results[1], "expected identical result pointers across concurrent calls")
	assert.Same(t, results[1], results[2], "expected identical result pointers across concurrent calls")
}

func TestInitializeProtocolVersionMismatchStopsSession(t *testing.T) {
	defer leaktest.Check(t)()

	s, peer := newTestSession(t)
	defer s.Close()

	go func() {
		result := successResult()
		result["protocolVersion"] = "NOT_A_VERSION"
		respondOnce(t, peer, result)
	}()

	_, err := s.Initialize(context.Background(), time.Second)
	require.Error(t, err, "expected protocol version mismatch error")
	assert.False(t, s.Initialized(), "session should not report initialized after a mismatch")
}

func TestInitializeTimeout(t *testing.T) {
	defer leaktest.Check(t)()

	s, _ := newTestSession(t)
	defer s.Close()

	start := time.Now()
	_, err := s.Initialize(context.Background(), 20*time.Millisecond)
	require.Error(t, err, "expected timeout error")
	assert.Less(t, time.Since(start), 2*time.Second, "Initialize took too long to time out")
}
