package code

import (
	"encoding/json"
	"fmt"
)

// Error is the concrete type of errors carried across the wire in a
// JSON-RPC error response. It also satisfies the error interface so it
// can be returned and compared like any other Go error.
type Error struct {
	Code    Code            `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error returns a human-readable description of e.
func (e *Error) Error() string { return fmt.Sprintf("[%d] %s", e.Code, e.Message) }

// ErrCode reports the machine-readable code carried by e.
func (e *Error) ErrCode() Code { return e.Code }

// WithData marshals v as JSON and returns a copy of e whose Data field
// carries the result. If v is nil or fails to marshal, e is returned
// unmodified.
func (e *Error) WithData(v any) *Error {
	if v == nil {
		return e
	}
	data, err := json.Marshal(v)
	if err != nil {
		return e
	}
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

// Errorf builds an *Error with the given code and a formatted message.
func Errorf(code Code, msg string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(msg, args...)}
}

// Disconnects reports whether an outbound error response carrying this
// code requires the sending side to tear down the client connection
// after delivery.
func (e *Error) Disconnects() bool {
	return e != nil && e.Code == ProtocolVersionMismatch
}
