package server_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/server"
	"github.com/davenpi/conduit-mcp/transport"
)

// newTestCoordinator starts a Coordinator over a fresh in-memory
// transport. Callers must defer c.Stop() themselves, and must do so
// *after* (meaning: declared later than, so it runs first) any deferred
// leaktest.Check call, or the leak check will see the coordinator's own
// still-running goroutines as leaked.
func newTestCoordinator(t *testing.T) (*server.Coordinator, *transport.Direct, *transport.Peer) {
	t.Helper()
	hub := transport.NewDirect()
	peer := hub.Connect("client-1")
	c := server.NewCoordinator(hub, &server.CoordinatorOptions{DefaultTimeout: 2 * time.Second})
	c.Start(context.Background())
	return c, hub, peer
}

func TestCoordinatorRoutesRequestToHandler(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	c.RegisterRequestHandler("ping", func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		return protocol.EmptyResult{}, nil
	})

	require.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"1","method":"ping"}`)))

	raw := recvOrTimeout(t, peer)
	var reply struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *code.Error     `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Nil(t, reply.Error)
	assert.Equal(t, "1", reply.ID)
}

func TestCoordinatorUnknownMethodReturnsError(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	require.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"x"}}`)))

	raw := recvOrTimeout(t, peer)
	var reply struct {
		Error *code.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, code.MethodNotFound, reply.Error.Code)
}

func TestCoordinatorHandlerPanicBecomesInternalError(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	c.RegisterRequestHandler("tools/call", func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		panic("boom")
	})

	require.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"x"}}`)))

	raw := recvOrTimeout(t, peer)
	var reply struct {
		Error *code.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, code.InternalError, reply.Error.Code)
}

func TestCoordinatorDuplicateRequestIDRejected(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	block := make(chan struct{})
	c.RegisterRequestHandler("tools/call", func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		<-block
		return protocol.EmptyResult{}, nil
	})

	send := []byte(`{"jsonrpc":"2.0","id":"dup","method":"tools/call","params":{"name":"x"}}`)
	require.NoError(t, peer.Send(send))
	// Give the first request time to register before the duplicate arrives.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, peer.Send(send))

	raw := recvOrTimeout(t, peer)
	var reply struct {
		Error *code.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	require.NotNil(t, reply.Error, "want InvalidRequest for duplicate id")
	assert.Equal(t, code.InvalidRequest, reply.Error.Code)

	close(block)
	recvOrTimeout(t, peer) // drain the first request's eventual reply
}

func TestCoordinatorCancelledNotificationCancelsHandler(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	started := make(chan struct{})
	c.RegisterRequestHandler("tools/call", func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		close(started)
		<-ctx.Done()
		return nil, code.Errorf(code.Cancelled, "cancelled")
	})

	require.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"7","method":"tools/call","params":{"name":"x"}}`)))
	<-started

	note, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "notifications/cancelled",
		"params":  map[string]any{"requestId": "7"},
	})
	require.NoError(t, err)
	require.NoError(t, peer.Send(note))

	recvOrTimeout(t, peer) // the handler's (cancelled) reply

	assert.Equal(t, 0, c.Manager().InboundCount("client-1"))
}

func TestCoordinatorSendRequestRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()
	go func() {
		raw := recvOrTimeout(t, peer)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		json.Unmarshal(raw, &req)
		if req.Method != "roots/list" {
			t.Errorf("got method %q", req.Method)
			return
		}
		resp, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      json.RawMessage(req.ID),
			"result":  map[string]any{"roots": []any{}},
		})
		peer.Send(resp)
	}()

	result, cerr, err := c.SendRequest(context.Background(), "client-1", "roots/list", protocol.ListRootsRequest{}, time.Second)
	require.NoError(t, err)
	require.Nil(t, cerr)

	var got protocol.ListRootsResult
	require.NoError(t, json.Unmarshal(result, &got))
	if diff := cmp.Diff([]protocol.Root{}, got.Roots); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 0, c.Manager().OutboundCount("client-1"))
}

func TestCoordinatorSendRequestTimeoutSendsCancellation(t *testing.T) {
	defer leaktest.Check(t)()

	c, _, peer := newTestCoordinator(t)
	defer c.Stop()

	_, _, err := c.SendRequest(context.Background(), "client-1", "roots/list", protocol.ListRootsRequest{}, 30*time.Millisecond)
	require.Error(t, err, "expected timeout error")

	raw := recvOrTimeout(t, peer) // the outgoing request itself
	var first struct {
		Method string `json:"method"`
	}
	json.Unmarshal(raw, &first)
	require.Equal(t, "roots/list", first.Method)

	cancelRaw := recvOrTimeout(t, peer)
	var note struct {
		Method string `json:"method"`
		Params struct {
			Reason string `json:"reason"`
		} `json:"params"`
	}
	json.Unmarshal(cancelRaw, &note)
	assert.Equal(t, "notifications/cancelled", note.Method)

	assert.Equal(t, 0, c.Manager().OutboundCount("client-1"))
}

func TestCoordinatorStopCancelsInFlightHandlers(t *testing.T) {
	defer leaktest.Check(t)()

	hub := transport.NewDirect()
	peer := hub.Connect("client-1")
	c := server.NewCoordinator(hub, nil)
	c.Start(context.Background())

	started := make(chan struct{})
	c.RegisterRequestHandler("tools/call", func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		close(started)
		<-ctx.Done()
		return nil, code.Errorf(code.Cancelled, "cancelled")
	})

	require.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"x"}}`)))
	<-started

	require.NoError(t, c.Stop())
	assert.False(t, c.Running(), "coordinator still reports running after Stop")
	assert.Equal(t, 0, c.ClientCount())
}

func recvOrTimeout(t *testing.T, peer *transport.Peer) []byte {
	t.Helper()
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := peer.Recv()
		ch <- result{data, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}
