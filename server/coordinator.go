package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/transport"
)

// ErrNotRunning is returned by operations that require a running
// Coordinator.
var ErrNotRunning = errors.New("server: coordinator is not running")

// RequestHandler answers a request from clientID. Returning a non-nil
// *code.Error sends that error to the client instead of result.
type RequestHandler func(ctx context.Context, clientID ClientID, req protocol.Method) (result any, err *code.Error)

// NotificationHandler processes a notification from clientID. It has no
// return value: notifications never produce a response.
type NotificationHandler func(ctx context.Context, clientID ClientID, note protocol.Method)

type coordinatorState int

const (
	stateIdle coordinatorState = iota
	stateRunning
	stateStopping
)

// Coordinator multiplexes a Transport across any number of concurrent
// clients, classifying and routing inbound JSON-RPC messages to
// registered handlers, correlating outbound requests with their
// responses, and enforcing per-request timeouts.
type Coordinator struct {
	transport transport.Transport
	manager   *ClientManager
	opts      *CoordinatorOptions
	sem       *semaphore.Weighted
	log       Logger

	reqHandlersMu sync.RWMutex
	reqHandlers   map[string]RequestHandler
	noteHandlers  map[string]NotificationHandler

	mu      sync.Mutex
	state   coordinatorState
	cancel  context.CancelFunc
	runCtx  context.Context
	group   *errgroup.Group
	wg      sync.WaitGroup
}

// NewCoordinator builds a Coordinator around t and a fresh
// ClientManager. A nil opts uses the defaults documented on
// CoordinatorOptions.
func NewCoordinator(t transport.Transport, opts *CoordinatorOptions) *Coordinator {
	return &Coordinator{
		transport:    t,
		manager:      NewClientManager(),
		opts:         opts,
		sem:          semaphore.NewWeighted(opts.concurrency()),
		log:          opts.logFunc(),
		reqHandlers:  make(map[string]RequestHandler),
		noteHandlers: make(map[string]NotificationHandler),
	}
}

// Manager returns the Coordinator's ClientManager, mainly for tests that
// want to assert on table invariants directly.
func (c *Coordinator) Manager() *ClientManager { return c.manager }

// RegisterRequestHandler registers handler for method. Registering the
// same method twice replaces the previous handler.
func (c *Coordinator) RegisterRequestHandler(method string, handler RequestHandler) {
	c.reqHandlersMu.Lock()
	defer c.reqHandlersMu.Unlock()
	c.reqHandlers[method] = handler
}

// RegisterNotificationHandler registers handler for method.
func (c *Coordinator) RegisterNotificationHandler(method string, handler NotificationHandler) {
	c.reqHandlersMu.Lock()
	defer c.reqHandlersMu.Unlock()
	c.noteHandlers[method] = handler
}

// RegisteredMethods lists every request method with a registered
// handler, for introspection.
func (c *Coordinator) RegisteredMethods() []string {
	c.reqHandlersMu.RLock()
	defer c.reqHandlersMu.RUnlock()
	out := make([]string, 0, len(c.reqHandlers))
	for m := range c.reqHandlers {
		out = append(out, m)
	}
	return out
}

// ClientCount reports how many clients are currently registered.
func (c *Coordinator) ClientCount() int {
	return len(c.manager.ClientIDs())
}

// Running reports whether the Coordinator has been started and not yet
// stopped. It stays true if the message loop ends because the
// transport's message channel closed; only Stop clears it.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// Start begins processing inbound messages in the background. It is
// safe to call more than once; subsequent calls while already running
// are ignored.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)
	c.runCtx = runCtx
	c.cancel = cancel
	c.group = group
	c.state = stateRunning
	group.Go(func() error { return c.messageLoop(gctx) })
}

// Stop halts message processing, cancels every in-flight inbound
// handler, and clears all client state. It is safe to call more than
// once.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.state == stateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopping
	cancel := c.cancel
	group := c.group
	c.mu.Unlock()

	c.transport.Close()
	cancel()
	err := group.Wait()
	c.wg.Wait()

	c.manager.CleanupAllClients()

	c.mu.Lock()
	c.state = stateIdle
	c.cancel = nil
	c.group = nil
	c.runCtx = nil
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Coordinator) messageLoop(ctx context.Context) error {
	messages := c.transport.ClientMessages()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.routeClientMessage(ctx, msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Coordinator) routeClientMessage(ctx context.Context, msg transport.ClientMessage) {
	kind, cerr := protocol.Classify(msg.Payload)
	if cerr != nil {
		c.log.Printf("unrecognized message from %s: %v", msg.ClientID, cerr)
		return
	}
	switch kind {
	case protocol.KindRequest:
		c.handleRequest(ctx, msg.ClientID, msg.Payload)
	case protocol.KindNotification:
		c.handleNotification(ctx, msg.ClientID, msg.Payload)
	case protocol.KindResponse:
		c.handleResponse(msg.ClientID, msg.Payload)
	}
}

// ================================
// Inbound requests
// ================================

func (c *Coordinator) handleRequest(ctx context.Context, clientID ClientID, payload []byte) {
	c.manager.RegisterClient(clientID)

	parsed, cerr := protocol.ParseRequest(payload)
	if cerr != nil {
		c.sendError(clientID, protocol.ExtractID(payload), cerr)
		return
	}

	c.reqHandlersMu.RLock()
	handler, ok := c.reqHandlers[parsed.Method]
	c.reqHandlersMu.RUnlock()
	if !ok {
		c.sendError(clientID, parsed.ID, code.Errorf(code.MethodNotFound, "no handler for method %q", parsed.Method))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	if cerr := c.manager.TrackInbound(clientID, string(parsed.ID), parsed.Method, cancel); cerr != nil {
		cancel()
		c.sendError(clientID, parsed.ID, cerr)
		return
	}

	c.wg.Add(1)
	go c.executeRequestHandler(reqCtx, cancel, clientID, parsed, handler)
}

func (c *Coordinator) executeRequestHandler(ctx context.Context, cancel context.CancelFunc, clientID ClientID, parsed *protocol.ParsedRequest, handler RequestHandler) {
	defer c.wg.Done()
	defer cancel()
	defer c.manager.UntrackInbound(clientID, string(parsed.ID))

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return // context ended before we got to run at all
	}
	defer c.sem.Release(1)

	result, cerr := c.invokeRequestHandler(ctx, clientID, parsed, handler)

	var payload []byte
	var err error
	if cerr != nil {
		payload, err = protocol.EncodeError(parsed.ID, cerr)
	} else {
		payload, err = protocol.EncodeResult(parsed.ID, result)
	}
	if err != nil {
		c.log.Printf("encode response to %s for %s: %v", clientID, parsed.Method, err)
		return
	}
	if err := c.transport.Send(context.Background(), clientID, payload); err != nil {
		c.log.Printf("send response to %s: %v", clientID, err)
		return
	}
	if cerr.Disconnects() {
		c.manager.CleanupClient(clientID)
	}
}

func (c *Coordinator) invokeRequestHandler(ctx context.Context, clientID ClientID, parsed *protocol.ParsedRequest, handler RequestHandler) (result any, cerr *code.Error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			cerr = code.Errorf(code.InternalError, "handler for %q panicked: %v", parsed.Method, r)
		}
	}()
	return handler(ctx, clientID, parsed.Value)
}

func (c *Coordinator) sendError(clientID ClientID, id []byte, cerr *code.Error) {
	payload, err := protocol.EncodeError(id, cerr)
	if err != nil {
		c.log.Printf("encode error response to %s: %v", clientID, err)
		return
	}
	if err := c.transport.Send(context.Background(), clientID, payload); err != nil {
		c.log.Printf("send error response to %s: %v", clientID, err)
	}
}

// ================================
// Inbound notifications
// ================================

func (c *Coordinator) handleNotification(ctx context.Context, clientID ClientID, payload []byte) {
	c.manager.RegisterClient(clientID)

	parsed, cerr := protocol.ParseNotification(payload)
	if cerr != nil {
		c.log.Printf("invalid notification from %s: %v", clientID, cerr)
		return
	}

	if cancelled, ok := parsed.Value.(protocol.CancelledNotification); ok {
		// Inbound entries are keyed by the request id's raw JSON text.
		rawID, _ := json.Marshal(cancelled.RequestID)
		c.manager.CancelInbound(clientID, string(rawID))
		return
	}

	c.reqHandlersMu.RLock()
	handler, ok := c.noteHandlers[parsed.Method]
	c.reqHandlersMu.RUnlock()
	if !ok {
		c.log.Printf("unknown notification %q from %s", parsed.Method, clientID)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler(ctx, clientID, parsed.Value)
	}()
}

// ================================
// Inbound responses
// ================================

func (c *Coordinator) handleResponse(clientID ClientID, payload []byte) {
	parsed, cerr := protocol.ParseResponse(payload)
	if cerr != nil {
		c.log.Printf("invalid response from %s: %v", clientID, cerr)
		return
	}
	// Outbound requests are sent with string UUID ids and tracked under
	// the bare UUID, so the JSON string id is decoded before the lookup.
	var requestID string
	if err := json.Unmarshal(parsed.ID, &requestID); err != nil {
		c.log.Printf("response from %s has non-string id %s", clientID, parsed.ID)
		return
	}
	resolved := c.manager.ResolveOutbound(clientID, requestID, OutboundResult{Result: parsed.Result, Err: parsed.Error})
	if !resolved {
		c.log.Printf("no pending request %s for client %s", requestID, clientID)
	}
}

// ================================
// Outbound requests and notifications
// ================================

// SendRequest sends method/params to clientID and waits for its
// response, applying timeout (or the Coordinator's default if timeout
// is zero). The request id is a fresh UUID, per request.
func (c *Coordinator) SendRequest(ctx context.Context, clientID ClientID, method string, params protocol.Method, timeout time.Duration) ([]byte, *code.Error, error) {
	if !c.Running() {
		return nil, nil, ErrNotRunning
	}
	if timeout <= 0 {
		timeout = c.opts.defaultTimeout()
	}

	c.manager.RegisterClient(clientID)
	requestID := uuid.NewString()
	entry := c.manager.TrackOutbound(clientID, requestID, method)
	defer c.manager.UntrackOutbound(clientID, requestID)

	data, err := protocol.EncodeRequest(requestID, method, params)
	if err != nil {
		return nil, nil, err
	}
	if err := c.transport.Send(ctx, clientID, data); err != nil {
		return nil, nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, waitErr := entry.Wait(waitCtx)
	if waitErr != nil {
		c.handleRequestTimeout(clientID, requestID)
		return nil, nil, waitErr
	}
	return result.Result, result.Err, nil
}

func (c *Coordinator) handleRequestTimeout(clientID ClientID, requestID string) {
	note := protocol.CancelledNotification{RequestID: requestID, Reason: "Request timed out"}
	if err := c.SendNotification(context.Background(), clientID, note); err != nil {
		c.log.Printf("send cancellation to %s: %v", clientID, err)
	}
}

// SendNotification sends a fire-and-forget notification to clientID.
func (c *Coordinator) SendNotification(ctx context.Context, clientID ClientID, note protocol.Method) error {
	if !c.Running() {
		return ErrNotRunning
	}
	data, err := protocol.EncodeNotification(note.Method(), note)
	if err != nil {
		return err
	}
	return c.transport.Send(ctx, clientID, data)
}

// CancelRequestFromClient cancels the inbound handler requestID is
// running for clientID, reporting whether one was found and cancelled.
func (c *Coordinator) CancelRequestFromClient(clientID ClientID, requestID string) bool {
	return c.manager.CancelInbound(clientID, requestID)
}
