package protocol

import "encoding/json"

// Meta carries the opaque "_meta" bag that accompanies most MCP
// messages. A nil or empty Meta is omitted from the wire form entirely;
// a non-empty one is passed through verbatim, key for key, since this
// protocol never interprets its contents.
type Meta map[string]any

// MarshalJSON encodes an empty or nil Meta as JSON null rather than
// "{}". Fields tagged "omitempty" drop an empty Meta before MarshalJSON
// is ever called; the null form only appears where a Meta is encoded
// without that tag.
func (m Meta) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any(m))
}

// Method returns the JSON-RPC method name for a decoded request or
// notification value.
type Method interface {
	Method() string
}

// PingRequest is the bidirectional liveness check. Either side may send
// it at any time; EmptyResult answers it.
type PingRequest struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (PingRequest) Method() string { return "ping" }

// EmptyResult is returned by requests that carry no data on success.
type EmptyResult struct {
	Meta Meta `json:"_meta,omitempty"`
}

// CancelledNotification tells the peer that the request named by
// RequestID no longer needs an answer. Reason is advisory.
type CancelledNotification struct {
	RequestID any    `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
	Meta      Meta   `json:"_meta,omitempty"`
}

func (CancelledNotification) Method() string { return "notifications/cancelled" }

// ProgressNotification reports incremental progress against an
// outstanding request identified by ProgressToken.
type ProgressNotification struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
	Message       string  `json:"message,omitempty"`
	Meta          Meta    `json:"_meta,omitempty"`
}

func (ProgressNotification) Method() string { return "notifications/progress" }

// ContentBlock is the tagged union of content kinds that can appear in
// prompt messages, tool results, and sampling messages: "text", "image",
// "audio", or "resource". Which fields are populated is determined by
// Type.
type ContentBlock struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// EmbeddedResource carries a resource's contents inline inside a
// ContentBlock of type "resource".
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// UnmarshalJSON normalizes URI the way Resource does.
func (e *EmbeddedResource) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI      json.RawMessage `json:"uri"`
		MimeType string          `json:"mimeType,omitempty"`
		Text     string          `json:"text,omitempty"`
		Blob     string          `json:"blob,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &e.URI); err != nil {
		return err
	}
	e.MimeType = wire.MimeType
	e.Text = wire.Text
	e.Blob = wire.Blob
	return nil
}
