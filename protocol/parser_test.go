package protocol_test

import (
	"testing"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/protocol"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		data string
		want protocol.Kind
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, protocol.KindRequest},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, protocol.KindNotification},
		{"result", `{"jsonrpc":"2.0","id":1,"result":{}}`, protocol.KindResponse},
		{"error", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`, protocol.KindResponse},
	}
	for _, c := range cases {
		kind, cerr := protocol.Classify([]byte(c.data))
		if cerr != nil {
			t.Errorf("%s: unexpected error: %v", c.name, cerr)
			continue
		}
		if kind != c.want {
			t.Errorf("%s: got kind %v, want %v", c.name, kind, c.want)
		}
	}
}

func TestClassifyRejectsBadVersion(t *testing.T) {
	_, cerr := protocol.Classify([]byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`))
	if cerr == nil || cerr.Code != code.InvalidRequest {
		t.Errorf("got %v, want InvalidRequest", cerr)
	}
}

func TestParseRequestUnknownMethod(t *testing.T) {
	_, cerr := protocol.ParseRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"bogus/method"}`))
	if cerr == nil || cerr.Code != code.MethodNotFound {
		t.Fatalf("got %v, want MethodNotFound", cerr)
	}
}

func TestParseRequestInitialize(t *testing.T) {
	data := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{
		"protocolVersion":"2025-06-18",
		"capabilities":{},
		"clientInfo":{"name":"test-client","version":"0.1.0"}
	}}`
	parsed, cerr := protocol.ParseRequest([]byte(data))
	if cerr != nil {
		t.Fatalf("ParseRequest: %v", cerr)
	}
	init, ok := parsed.Value.(protocol.InitializeRequest)
	if !ok {
		t.Fatalf("got %T, want InitializeRequest", parsed.Value)
	}
	if init.ClientInfo.Name != "test-client" {
		t.Errorf("got client name %q", init.ClientInfo.Name)
	}
}

func TestParseNotificationCancelled(t *testing.T) {
	data := `{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":"abc","reason":"timeout"}}`
	parsed, cerr := protocol.ParseNotification([]byte(data))
	if cerr != nil {
		t.Fatalf("ParseNotification: %v", cerr)
	}
	cancel, ok := parsed.Value.(protocol.CancelledNotification)
	if !ok {
		t.Fatalf("got %T, want CancelledNotification", parsed.Value)
	}
	if cancel.Reason != "timeout" {
		t.Errorf("got reason %q", cancel.Reason)
	}
}

func TestParseResponseError(t *testing.T) {
	data := `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`
	parsed, cerr := protocol.ParseResponse([]byte(data))
	if cerr != nil {
		t.Fatalf("ParseResponse: %v", cerr)
	}
	if parsed.Error == nil || parsed.Error.Code != code.MethodNotFound {
		t.Errorf("got %+v", parsed.Error)
	}
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	req := protocol.PingRequest{}
	data, err := protocol.EncodeRequest(1, req.Method(), req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	parsed, cerr := protocol.ParseRequest(data)
	if cerr != nil {
		t.Fatalf("ParseRequest: %v", cerr)
	}
	if parsed.Method != "ping" {
		t.Errorf("got method %q", parsed.Method)
	}
}
