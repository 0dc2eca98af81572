// Package session provides an ergonomic client-side facade over a
// Coordinator talking to a single peer: the initialize handshake, kept
// idempotent across repeated or concurrent callers, plus one wrapper
// method per client-to-server request the protocol defines.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/server"
)

// DefaultTimeout is applied by Initialize when it is given a zero or
// negative timeout. The other Session methods take no timeout and use
// the Coordinator's default outbound timeout.
const DefaultTimeout = 30 * time.Second

// Session wraps a running Coordinator and the ClientID of the single
// server it is conducting a handshake with.
type Session struct {
	coord *server.Coordinator
	peer  server.ClientID

	clientInfo   protocol.Implementation
	capabilities protocol.ClientCapabilities

	group singleflight.Group

	mu     sync.Mutex
	result *protocol.InitializeResult
}

// New returns a Session that will speak for clientInfo/capabilities
// when it initializes against peer over coord.
func New(coord *server.Coordinator, peer server.ClientID, clientInfo protocol.Implementation, capabilities protocol.ClientCapabilities) *Session {
	return &Session{coord: coord, peer: peer, clientInfo: clientInfo, capabilities: capabilities}
}

// Initialized reports whether Initialize has already completed
// successfully.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != nil
}

// Initialize performs the initialize handshake: it sends an
// InitializeRequest, validates the server's protocol version, and on
// success sends the InitializedNotification that tells the server the
// session is ready for use. Concurrent and repeated calls collapse
// into a single handshake and return the same result; once
// initialization has completed it is never repeated. Any failure
// (protocol mismatch, timeout, transport error) stops the underlying
// Coordinator, since a session that never completed its handshake is
// not in a usable state.
func (s *Session) Initialize(ctx context.Context, timeout time.Duration) (*protocol.InitializeResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	v, err, _ := s.group.Do("initialize", func() (any, error) {
		if r := s.cachedResult(); r != nil {
			return r, nil
		}
		result, err := s.doInitialize(ctx, timeout)
		if err != nil {
			s.coord.Stop()
			return nil, err
		}
		s.mu.Lock()
		s.result = result
		s.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*protocol.InitializeResult), nil
}

func (s *Session) cachedResult() *protocol.InitializeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) doInitialize(ctx context.Context, timeout time.Duration) (*protocol.InitializeResult, error) {
	req := protocol.InitializeRequest{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities:    s.capabilities,
		ClientInfo:      s.clientInfo,
	}
	raw, cerr, err := s.coord.SendRequest(ctx, s.peer, req.Method(), req, timeout)
	if err != nil {
		return nil, fmt.Errorf("session: initialize: %w", err)
	}
	if cerr != nil {
		return nil, fmt.Errorf("session: initialize: %w", cerr)
	}
	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("session: initialize: decode result: %w", err)
	}
	if result.ProtocolVersion != protocol.ProtocolVersion {
		return nil, fmt.Errorf("session: initialize: protocol version mismatch: server offered %q, want %q", result.ProtocolVersion, protocol.ProtocolVersion)
	}
	if err := s.coord.SendNotification(ctx, s.peer, protocol.InitializedNotification{}); err != nil {
		return nil, fmt.Errorf("session: initialize: send initialized notification: %w", err)
	}
	return &result, nil
}

// Close stops the underlying Coordinator.
func (s *Session) Close() error { return s.coord.Stop() }

func (s *Session) call(ctx context.Context, params protocol.Method, out any, timeout time.Duration) error {
	raw, cerr, err := s.coord.SendRequest(ctx, s.peer, params.Method(), params, timeout)
	if err != nil {
		return err
	}
	if cerr != nil {
		return cerr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Ping checks that the server is alive and responsive.
func (s *Session) Ping(ctx context.Context) error {
	return s.call(ctx, protocol.PingRequest{}, nil, 0)
}

// ListTools returns one page of the server's available tools.
func (s *Session) ListTools(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	var out protocol.ListToolsResult
	if err := s.call(ctx, protocol.ListToolsRequest{Cursor: cursor}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// CallTool invokes a named tool with arguments.
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (*protocol.CallToolResult, error) {
	var out protocol.CallToolResult
	req := protocol.CallToolRequest{Name: name, Arguments: arguments}
	if err := s.call(ctx, req, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResources returns one page of the server's available resources.
func (s *Session) ListResources(ctx context.Context, cursor string) (*protocol.ListResourcesResult, error) {
	var out protocol.ListResourcesResult
	if err := s.call(ctx, protocol.ListResourcesRequest{Cursor: cursor}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResourceTemplates returns one page of the server's resource
// templates.
func (s *Session) ListResourceTemplates(ctx context.Context, cursor string) (*protocol.ListResourceTemplatesResult, error) {
	var out protocol.ListResourceTemplatesResult
	if err := s.call(ctx, protocol.ListResourceTemplatesRequest{Cursor: cursor}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadResource fetches one resource's contents by URI.
func (s *Session) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	var out protocol.ReadResourceResult
	if err := s.call(ctx, protocol.ReadResourceRequest{URI: uri}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscribe asks the server to notify this client when uri changes.
func (s *Session) Subscribe(ctx context.Context, uri string) error {
	return s.call(ctx, protocol.SubscribeRequest{URI: uri}, nil, 0)
}

// Unsubscribe cancels a prior Subscribe.
func (s *Session) Unsubscribe(ctx context.Context, uri string) error {
	return s.call(ctx, protocol.UnsubscribeRequest{URI: uri}, nil, 0)
}

// ListPrompts returns one page of the server's available prompts.
func (s *Session) ListPrompts(ctx context.Context, cursor string) (*protocol.ListPromptsResult, error) {
	var out protocol.ListPromptsResult
	if err := s.call(ctx, protocol.ListPromptsRequest{Cursor: cursor}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrompt resolves a named prompt with concrete argument values.
func (s *Session) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*protocol.GetPromptResult, error) {
	var out protocol.GetPromptResult
	req := protocol.GetPromptRequest{Name: name, Arguments: arguments}
	if err := s.call(ctx, req, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete asks the server for completions of a partially-typed
// argument value.
func (s *Session) Complete(ctx context.Context, ref protocol.CompleteReference, arg protocol.CompleteArgument) (*protocol.CompleteResult, error) {
	var out protocol.CompleteResult
	req := protocol.CompleteRequest{Ref: ref, Argument: arg}
	if err := s.call(ctx, req, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetLevel asks the server to change its minimum emitted log level.
func (s *Session) SetLevel(ctx context.Context, level protocol.LogLevel) error {
	return s.call(ctx, protocol.SetLevelRequest{Level: level}, nil, 0)
}
