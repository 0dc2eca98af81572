// Package transport defines the boundary between a message coordinator
// and the wire: a Transport delivers (ClientID, payload) pairs inbound
// and accepts payloads addressed to a ClientID outbound. A Transport
// does not interpret the payload it carries; framing and encoding are
// its only concerns.
package transport

import "context"

// ClientID identifies one of possibly many peers multiplexed over a
// single Transport. A transport that only ever has one peer (stdio,
// a single TCP connection) still assigns it an id.
type ClientID string

// ClientMessage pairs an inbound payload with the client it arrived
// from.
type ClientMessage struct {
	ClientID ClientID
	Payload  []byte
}

// Transport is the contract a message coordinator consumes. Inbound
// messages arrive on the channel returned by ClientMessages, which is
// closed when the transport has no further input to deliver. Send and
// Close may be called concurrently with each other and with draining
// ClientMessages.
type Transport interface {
	// ClientMessages returns the channel of inbound messages. The
	// channel is closed when the transport has no further input.
	ClientMessages() <-chan ClientMessage

	// Send transmits payload to the named client. It returns an error
	// if the client is not known to the transport or the transport is
	// closed.
	Send(ctx context.Context, id ClientID, payload []byte) error

	// Close shuts the transport down. After Close returns, Send fails.
	// Direct also closes ClientMessages at once; Stdio and Header close
	// it only when their reader reaches end of input or fails.
	Close() error
}
