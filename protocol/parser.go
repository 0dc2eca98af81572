package protocol

import (
	"encoding/json"

	"github.com/davenpi/conduit-mcp/code"
)

// ParsedRequest is a classified, decoded inbound request.
type ParsedRequest struct {
	ID     json.RawMessage
	Method string
	Value  Method
}

// ParsedNotification is a classified, decoded inbound notification.
type ParsedNotification struct {
	Method string
	Value  Method
}

// ParsedResponse is a classified inbound response. Exactly one of
// Result or Error is set. Result is left as raw JSON because the
// expected result type is known only to whoever issued the original
// outbound request, not to the parser.
type ParsedResponse struct {
	ID     json.RawMessage
	Result json.RawMessage
	Error  *code.Error
}

// ParseRequest parses data, which must classify as KindRequest, into a
// ParsedRequest. It returns a JSON-RPC error if the method is unknown or
// the params do not match the method's expected shape.
func ParseRequest(data []byte) (*ParsedRequest, *code.Error) {
	env, cerr := decodeEnvelope(data)
	if cerr != nil {
		return nil, cerr
	}
	kind, cerr := classify(env)
	if cerr != nil {
		return nil, cerr
	}
	if kind != KindRequest {
		return nil, code.Errorf(code.InvalidRequest, "message is not a request")
	}
	decodeParams, ok := requestMethods[env.Method]
	if !ok {
		return nil, code.Errorf(code.MethodNotFound, "unknown method %q", env.Method)
	}
	value, cerr := decodeParams(env.Params)
	if cerr != nil {
		return nil, cerr
	}
	return &ParsedRequest{ID: env.ID, Method: env.Method, Value: value}, nil
}

// ParseNotification parses data, which must classify as
// KindNotification, into a ParsedNotification.
func ParseNotification(data []byte) (*ParsedNotification, *code.Error) {
	env, cerr := decodeEnvelope(data)
	if cerr != nil {
		return nil, cerr
	}
	kind, cerr := classify(env)
	if cerr != nil {
		return nil, cerr
	}
	if kind != KindNotification {
		return nil, code.Errorf(code.InvalidRequest, "message is not a notification")
	}
	decodeParams, ok := notificationMethods[env.Method]
	if !ok {
		return nil, code.Errorf(code.MethodNotFound, "unknown method %q", env.Method)
	}
	value, cerr := decodeParams(env.Params)
	if cerr != nil {
		return nil, cerr
	}
	return &ParsedNotification{Method: env.Method, Value: value}, nil
}

// ParseResponse parses data, which must classify as KindResponse, into a
// ParsedResponse.
func ParseResponse(data []byte) (*ParsedResponse, *code.Error) {
	env, cerr := decodeEnvelope(data)
	if cerr != nil {
		return nil, cerr
	}
	kind, cerr := classify(env)
	if cerr != nil {
		return nil, cerr
	}
	if kind != KindResponse {
		return nil, code.Errorf(code.InvalidRequest, "message is not a response")
	}
	return &ParsedResponse{ID: env.ID, Result: env.Result, Error: env.Error}, nil
}
