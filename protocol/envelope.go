package protocol

import (
	"encoding/json"

	"github.com/davenpi/conduit-mcp/code"
)

// Version is the only JSON-RPC version this module speaks.
const Version = "2.0"

// envelope is the wire shape shared by every JSON-RPC message: requests,
// notifications, and responses all parse into this struct; which fields
// are populated determines the message's Kind.
type envelope struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *code.Error     `json:"error,omitempty"`
}

// Kind distinguishes the three JSON-RPC message shapes.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

// Classify parses data as a single JSON-RPC message and reports which
// kind it is. It does not validate that the method name is known or
// that params/result match any particular shape; ParseRequest,
// ParseNotification, and ParseResponse do that.
func Classify(data []byte) (Kind, *code.Error) {
	env, cerr := decodeEnvelope(data)
	if cerr != nil {
		return KindInvalid, cerr
	}
	return classify(env)
}

func classify(env *envelope) (Kind, *code.Error) {
	isReply := env.Result != nil || env.Error != nil
	switch {
	case env.Method != "" && !isReply:
		if len(env.ID) == 0 || isNullRaw(env.ID) {
			return KindNotification, nil
		}
		return KindRequest, nil
	case env.Method == "" && isReply:
		return KindResponse, nil
	default:
		return KindInvalid, code.Errorf(code.InvalidRequest, "message is neither a request, a notification, nor a response")
	}
}

func decodeEnvelope(data []byte) (*envelope, *code.Error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, code.Errorf(code.ParseError, "invalid json: %v", err)
	}
	if env.Version != Version {
		return nil, code.Errorf(code.InvalidRequest, "missing or invalid jsonrpc version")
	}
	return &env, nil
}

// ExtractID best-effort reads the "id" field out of data without
// requiring the rest of the message to be well-formed. It is used to
// address an error response to a request that failed to parse.
func ExtractID(data []byte) json.RawMessage {
	var partial struct {
		ID json.RawMessage `json:"id"`
	}
	_ = json.Unmarshal(data, &partial)
	return partial.ID
}

func isNullRaw(v json.RawMessage) bool {
	return len(v) == 4 && string(v) == "null"
}

// EncodeRequest builds the wire bytes for an outbound request.
func EncodeRequest(id any, method string, params Method) ([]byte, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: Version, ID: rawID, Method: method, Params: rawParams})
}

// EncodeNotification builds the wire bytes for an outbound notification.
func EncodeNotification(method string, params Method) ([]byte, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: Version, Method: method, Params: rawParams})
}

// EncodeResult builds the wire bytes for a successful response to id.
func EncodeResult(id json.RawMessage, result any) ([]byte, error) {
	rawResult, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: Version, ID: id, Result: rawResult})
}

// EncodeError builds the wire bytes for an error response to id. id may
// be nil if the original request's ID could not be determined.
func EncodeError(id json.RawMessage, err *code.Error) ([]byte, error) {
	return json.Marshal(envelope{Version: Version, ID: id, Error: err})
}
