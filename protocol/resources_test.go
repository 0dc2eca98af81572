package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/davenpi/conduit-mcp/protocol"
)

func TestResourceAliasesOnWire(t *testing.T) {
	r := protocol.Resource{
		URI:         "https://example.com/",
		Name:        "Example",
		MimeType:    "text/plain",
		SizeInBytes: 1,
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["mime_type"]; ok {
		t.Error("wire form should not contain mime_type")
	}
	if raw["mimeType"] != "text/plain" {
		t.Errorf("got mimeType=%v", raw["mimeType"])
	}
	if raw["size"] != float64(1) {
		t.Errorf("got size=%v", raw["size"])
	}
}

func TestAnnotationsAudienceAcceptsStringOrList(t *testing.T) {
	var a protocol.Annotations
	if err := json.Unmarshal([]byte(`{"audience":"user","priority":0.5}`), &a); err != nil {
		t.Fatalf("Unmarshal bare string: %v", err)
	}
	if len(a.Audience) != 1 || a.Audience[0] != "user" {
		t.Errorf("got audience %v", a.Audience)
	}

	var b protocol.Annotations
	if err := json.Unmarshal([]byte(`{"audience":["user","assistant"]}`), &b); err != nil {
		t.Fatalf("Unmarshal list: %v", err)
	}
	if len(b.Audience) != 2 {
		t.Errorf("got audience %v", b.Audience)
	}
}

func TestAnnotationsAudienceSerializesAsList(t *testing.T) {
	a := protocol.Annotations{Audience: []string{"user"}, Priority: 0.5}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	json.Unmarshal(data, &raw)
	list, ok := raw["audience"].([]any)
	if !ok || len(list) != 1 || list[0] != "user" {
		t.Errorf("got audience=%v", raw["audience"])
	}
}

func TestNewResourceNormalizesURI(t *testing.T) {
	r, err := protocol.NewResource("https://example.com", "Example")
	if err != nil {
		t.Fatalf("NewResource: %v", err)
	}
	if r.URI != "https://example.com/" {
		t.Errorf("got uri %q", r.URI)
	}
}

func TestNewResourceRejectsInvalidURI(t *testing.T) {
	if _, err := protocol.NewResource("not-a-uri", "Test"); err == nil {
		t.Error("expected error for invalid uri")
	}
}

func TestResourceUnmarshalNormalizesURI(t *testing.T) {
	var r protocol.Resource
	data := []byte(`{"uri":"https://example.com","name":"Example"}`)
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.URI != "https://example.com/" {
		t.Errorf("got uri %q", r.URI)
	}
}

func TestResourceUnmarshalRejectsInvalidURI(t *testing.T) {
	var r protocol.Resource
	data := []byte(`{"uri":"not-a-uri","name":"Example"}`)
	if err := json.Unmarshal(data, &r); err == nil {
		t.Error("expected error decoding invalid uri")
	}
}

func TestReadResourceRequestUnmarshalRejectsInvalidURI(t *testing.T) {
	data := []byte(`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"not-a-uri"}}`)
	if _, cerr := protocol.ParseRequest(data); cerr == nil {
		t.Error("expected INVALID_PARAMS decoding a malformed resources/read uri")
	}
}

func TestSubscribeRequestUnmarshalNormalizesURI(t *testing.T) {
	var s protocol.SubscribeRequest
	data := []byte(`{"uri":"https://example.com"}`)
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.URI != "https://example.com/" {
		t.Errorf("got uri %q", s.URI)
	}
}
