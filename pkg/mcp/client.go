package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

// ClientOptions configures a Client (spec §6 "Configuration options...
// create-client").
type ClientOptions struct {
	Logger          *slog.Logger
	NumThreads      int
	ProtocolVersion string
	Capabilities    ClientCapabilities
}

// Client is the MCP Client component (spec §4.5): it drives the
// initialize/initialized handshake and exposes the typed request API.
type Client struct {
	info Implementation
	caps ClientCapabilities
	log  *slog.Logger
	opts ClientOptions
}

// NewClient creates a Client that will identify itself as info once
// connected.
func NewClient(info Implementation, opts *ClientOptions) *Client {
	c := &Client{info: info, log: slog.Default()}
	if opts != nil {
		c.opts = *opts
		if opts.Logger != nil {
			c.log = opts.Logger
		}
		c.caps = opts.Capabilities
	}
	return c
}

// Connect dials t, performs the initialize/initialized handshake (spec
// §4.5), and returns a ready ClientSession. On any handshake failure the
// session is closed and only the error is returned.
func (c *Client) Connect(ctx context.Context, t ClientTransport) (*ClientSession, error) {
	stream, err := t.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: client transport connect: %w", err)
	}

	cs := &ClientSession{
		client:      c,
		subscribers: make(map[int]any),
	}
	conn := jsonrpc2.NewConnection(stream,
		func(ctx context.Context, req *jsonrpc2.Request) (any, error) {
			return cs.handleRequest(ctx, req)
		},
		func(ctx context.Context, n *jsonrpc2.Notification) {
			cs.handleNotification(ctx, n)
		},
		&jsonrpc2.Options{NumWorkers: maxInt(c.opts.NumThreads, 1), Logger: c.log},
	)
	cs.conn = conn
	conn.Start()
	cs.setState(StateInitializing)

	version := c.opts.ProtocolVersion
	if version == "" {
		version = LatestVersion
	}
	initParams := InitializeParams{
		ProtocolVersion: version,
		ClientInfo:      c.info,
		Capabilities:    c.caps,
	}
	res, err := callTyped[InitializeResult](ctx, conn, "initialize", initParams)
	if err != nil {
		cs.fail(err)
		_ = cs.Close()
		return nil, fmt.Errorf("mcp: initialize failed: %w", err)
	}
	if versionIndex(res.ProtocolVersion) >= len(SupportedVersions) {
		cs.fail(fmt.Errorf("unsupported protocol version returned by server: %q", res.ProtocolVersion))
		_ = cs.Close()
		return nil, fmt.Errorf("mcp: server returned unsupported protocol version %q", res.ProtocolVersion)
	}

	cs.mu.Lock()
	cs.serverInfo = res.ServerInfo
	cs.serverCaps = res.Capabilities
	cs.version = res.ProtocolVersion
	cs.mu.Unlock()

	if err := conn.Notify(ctx, "notifications/initialized", struct{}{}); err != nil {
		cs.fail(err)
		_ = cs.Close()
		return nil, fmt.Errorf("mcp: notifications/initialized failed: %w", err)
	}
	cs.setState(StateReady)
	return cs, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ClientSession is a live connection to one MCP server (spec §4.5). Its
// state follows disconnected → initializing → ready → error → disconnected.
type ClientSession struct {
	client *Client
	conn   *jsonrpc2.Connection

	mu          sync.Mutex
	state       SessionState
	lastErr     error
	serverInfo  Implementation
	serverCaps  ServerCapabilities
	version     string
	logLevel    LoggingLevel
	toolsCache  *ListToolsResult
	nextSubID   int
	subscribers map[int]any
}

type resourceSubscriber struct {
	uri string
	fn  func(uri string, meta map[string]any)
}

type logSubscriber struct {
	fn func(LoggingMessageParams)
}

func (cs *ClientSession) setState(s SessionState) {
	cs.mu.Lock()
	cs.state = s
	cs.mu.Unlock()
}

func (cs *ClientSession) fail(err error) {
	cs.mu.Lock()
	cs.state = StateError
	cs.lastErr = err
	cs.mu.Unlock()
}

// State returns the session's current lifecycle state.
func (cs *ClientSession) State() SessionState {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.state
}

// ServerInfo returns the server's implementation identity, as returned
// during the handshake.
func (cs *ClientSession) ServerInfo() Implementation {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.serverInfo
}

// ServerCapabilities returns the server's negotiated capabilities.
func (cs *ClientSession) ServerCapabilities() ServerCapabilities {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.serverCaps
}

// WaitForReady polls the session state until it reaches StateReady, returns
// the stored error on StateError, or times out (spec §4.5
// "wait-for-ready(timeout)").
func (cs *ClientSession) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		switch cs.State() {
		case StateReady:
			return nil
		case StateError:
			cs.mu.Lock()
			err := cs.lastErr
			cs.mu.Unlock()
			return fmt.Errorf("mcp: session entered error state: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("mcp: timed out waiting for session to become ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close transitions the session to disconnected, cancels outstanding
// requests, drains subscriptions, and closes the transport (spec §4.5
// "close!").
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	cs.state = StateDisconnected
	cs.subscribers = make(map[int]any)
	cs.mu.Unlock()
	return cs.conn.Close()
}

// Wait blocks until the underlying connection's read loop exits, e.g.
// because the server closed the transport.
func (cs *ClientSession) Wait() { cs.conn.Wait() }

func callTyped[T any](ctx context.Context, conn *jsonrpc2.Connection, method string, params any) (*T, error) {
	raw, err := conn.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	var out T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("mcp: decoding %s result: %w", method, err)
		}
	}
	return &out, nil
}

// Ping sends the MCP "ping" request.
func (cs *ClientSession) Ping(ctx context.Context) error {
	_, err := cs.conn.Call(ctx, "ping", struct{}{})
	return err
}

// ListTools lists the tools currently available on the server.
func (cs *ClientSession) ListTools(ctx context.Context, p ListToolsParams) (*ListToolsResult, error) {
	return callTyped[ListToolsResult](ctx, cs.conn, "tools/list", p)
}

// AvailableTools reports whether name is among the server's tools, using and
// populating the session-local cache (spec §4.5 "available-tools? uses the
// cache if present... false is returned on server error").
func (cs *ClientSession) AvailableTools(ctx context.Context, name string) bool {
	cs.mu.Lock()
	cached := cs.toolsCache
	cs.mu.Unlock()
	if cached == nil {
		res, err := cs.ListTools(ctx, ListToolsParams{})
		if err != nil {
			return false
		}
		cs.mu.Lock()
		cs.toolsCache = res
		cs.mu.Unlock()
		cached = res
	}
	for _, t := range cached.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// CallTool invokes a tool by name (spec §4.4 "tools/call").
func (cs *ClientSession) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	return callTyped[CallToolResult](ctx, cs.conn, "tools/call", CallToolParams{Name: name, Arguments: args})
}

// ListPrompts lists the prompts currently available on the server.
func (cs *ClientSession) ListPrompts(ctx context.Context, p ListPromptsParams) (*ListPromptsResult, error) {
	return callTyped[ListPromptsResult](ctx, cs.conn, "prompts/list", p)
}

// GetPrompt fetches a rendered prompt from the server.
func (cs *ClientSession) GetPrompt(ctx context.Context, name string, args map[string]string) (*GetPromptResult, error) {
	return callTyped[GetPromptResult](ctx, cs.conn, "prompts/get", GetPromptParams{Name: name, Arguments: args})
}

// ListResources lists the resources currently available on the server.
func (cs *ClientSession) ListResources(ctx context.Context, p ListResourcesParams) (*ListResourcesResult, error) {
	return callTyped[ListResourcesResult](ctx, cs.conn, "resources/list", p)
}

// ReadResource asks the server to read uri and return its contents.
func (cs *ClientSession) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	return callTyped[ReadResourceResult](ctx, cs.conn, "resources/read", ReadResourceParams{URI: uri})
}

// SetLogLevel validates level against the 8 RFC-5424 names and sends
// logging/setLevel (spec §4.5 "set-log-level!").
func (cs *ClientSession) SetLogLevel(ctx context.Context, level LoggingLevel) error {
	if !IsValidLoggingLevel(string(level)) {
		return fmt.Errorf("mcp: invalid-log-level: %q", level)
	}
	_, err := cs.conn.Call(ctx, "logging/setLevel", SetLevelParams{Level: level})
	if err == nil {
		cs.mu.Lock()
		cs.logLevel = level
		cs.mu.Unlock()
	}
	return err
}

// Unsubscribe removes a subscription previously registered by one of the
// SubscribeXxx methods.
type Unsubscribe func()

func (cs *ClientSession) addSubscriber(v any) Unsubscribe {
	cs.mu.Lock()
	id := cs.nextSubID
	cs.nextSubID++
	cs.subscribers[id] = v
	cs.mu.Unlock()
	return func() {
		cs.mu.Lock()
		delete(cs.subscribers, id)
		cs.mu.Unlock()
	}
}

// SubscribeResource installs callback in the client-local subscription
// registry keyed by uri and sends resources/subscribe (spec §4.5
// "subscribe-resource!").
func (cs *ClientSession) SubscribeResource(ctx context.Context, uri string, callback func(uri string, meta map[string]any)) (Unsubscribe, error) {
	if _, err := cs.conn.Call(ctx, "resources/subscribe", SubscribeParams{URI: uri}); err != nil {
		return nil, err
	}
	return cs.addSubscriber(&resourceSubscriber{uri: uri, fn: callback}), nil
}

// SubscribeLogMessages registers callback for incoming notifications/message
// events (spec §4.5 "subscribe-log-messages!").
func (cs *ClientSession) SubscribeLogMessages(callback func(LoggingMessageParams)) Unsubscribe {
	return cs.addSubscriber(&logSubscriber{fn: callback})
}

// SubscribeToolsChanged registers callback for
// notifications/tools/list_changed (spec §4.5 "subscribe-tools-changed!").
func (cs *ClientSession) SubscribeToolsChanged(callback func()) Unsubscribe {
	cs.mu.Lock()
	cs.toolsCache = nil
	cs.mu.Unlock()
	return cs.addSubscriber(&toolsChangedSubscriber{fn: callback})
}

type toolsChangedSubscriber struct{ fn func() }
type promptsChangedSubscriber struct{ fn func() }

// SubscribePromptsChanged registers callback for
// notifications/prompts/list_changed (spec §4.5
// "subscribe-prompts-changed!").
func (cs *ClientSession) SubscribePromptsChanged(callback func()) Unsubscribe {
	return cs.addSubscriber(&promptsChangedSubscriber{fn: callback})
}

// handleRequest answers the small set of requests a server may send to a
// client (currently only "ping"; spec §4.5 does not define a client-side
// tool/prompt/resource surface for this core).
func (cs *ClientSession) handleRequest(_ context.Context, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "ping":
		return &emptyResult{}, nil
	default:
		return nil, jsonrpc2MethodNotFound("unknown method: " + req.Method)
	}
}

// handleNotification dispatches a server-pushed notification to whichever
// client-local subscribers are registered for it. Callback panics/errors are
// recovered so a misbehaving callback never disturbs the RPC runtime (spec
// §4.5: "exceptions in callbacks are caught and logged but do not disturb
// the RPC runtime").
func (cs *ClientSession) handleNotification(_ context.Context, n *jsonrpc2.Notification) {
	defer func() {
		if r := recover(); r != nil {
			cs.client.log.Error("subscriber callback panicked", "method", n.Method, "recovered", r)
		}
	}()

	cs.mu.Lock()
	subs := make([]any, 0, len(cs.subscribers))
	for _, s := range cs.subscribers {
		subs = append(subs, s)
	}
	cs.mu.Unlock()

	switch n.Method {
	case "notifications/resources/updated":
		var p ResourceUpdatedParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			return
		}
		var meta map[string]any
		if p.Meta != nil {
			meta = p.Meta.Data
		}
		for _, s := range subs {
			if rs, ok := s.(*resourceSubscriber); ok && rs.uri == p.URI {
				rs.fn(p.URI, meta)
			}
		}
	case "notifications/message":
		var p LoggingMessageParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			return
		}
		for _, s := range subs {
			if ls, ok := s.(*logSubscriber); ok {
				ls.fn(p)
			}
		}
	case "notifications/tools/list_changed":
		cs.mu.Lock()
		cs.toolsCache = nil
		cs.mu.Unlock()
		for _, s := range subs {
			if ts, ok := s.(*toolsChangedSubscriber); ok {
				ts.fn()
			}
		}
	case "notifications/prompts/list_changed":
		for _, s := range subs {
			if ps, ok := s.(*promptsChangedSubscriber); ok {
				ps.fn()
			}
		}
	default:
		cs.client.log.Debug("dropping unhandled notification", "method", n.Method)
	}
}
