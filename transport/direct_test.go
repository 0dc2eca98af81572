package transport_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/davenpi/conduit-mcp/transport"
)

func TestDirectRoundTrip(t *testing.T) {
	hub := transport.NewDirect()
	peer := hub.Connect("alice")

	if err := peer.Send([]byte(`{"hello":1}`)); err != nil {
		t.Fatalf("peer.Send: %v", err)
	}
	select {
	case msg := <-hub.ClientMessages():
		if msg.ClientID != "alice" || string(msg.Payload) != `{"hello":1}` {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	ctx := context.Background()
	if err := hub.Send(ctx, "alice", []byte(`{"world":2}`)); err != nil {
		t.Fatalf("hub.Send: %v", err)
	}
	got, err := peer.Recv()
	if err != nil {
		t.Fatalf("peer.Recv: %v", err)
	}
	if string(got) != `{"world":2}` {
		t.Errorf("got %q", got)
	}
}

func TestDirectSendUnknownClient(t *testing.T) {
	hub := transport.NewDirect()
	if err := hub.Send(context.Background(), "nobody", []byte("x")); err == nil {
		t.Error("expected error sending to unknown client")
	}
}

func TestDirectDisconnect(t *testing.T) {
	hub := transport.NewDirect()
	peer := hub.Connect("bob")
	hub.Disconnect("bob")
	if _, err := peer.Recv(); err != io.EOF {
		t.Errorf("Recv after disconnect: got %v, want io.EOF", err)
	}
	if err := hub.Send(context.Background(), "bob", []byte("x")); err == nil {
		t.Error("expected error sending to disconnected client")
	}
}

func TestDirectClose(t *testing.T) {
	hub := transport.NewDirect()
	peer := hub.Connect("carol")
	hub.Close()
	if _, ok := <-hub.ClientMessages(); ok {
		t.Error("expected ClientMessages to be closed")
	}
	if _, err := peer.Recv(); err != io.EOF {
		t.Errorf("Recv after close: got %v, want io.EOF", err)
	}
}
