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

const notifyTimeout = 10 * time.Second

const defaultPageSize = 50

// ServerOptions configures a Server (spec §6 "Configuration options...
// create-server").
type ServerOptions struct {
	NumThreads   int
	Logger       *slog.Logger
	Capabilities ServerCapabilities
}

// Server is the MCP Server component (spec §4.4): it dispatches the MCP
// method surface, enforces session-state preconditions, and emits
// server-push notifications through its Registry.
type Server struct {
	impl       Implementation
	caps       ServerCapabilities
	numWorkers int
	log        *slog.Logger

	tools     *toolRegistry
	prompts   *promptRegistry
	resources *resourceRegistry
	registry  *Registry

	mu       sync.Mutex
	sessions map[string]*ServerSession
}

// NewServer creates a Server advertising impl as its server info.
func NewServer(impl Implementation, opts *ServerOptions) *Server {
	s := &Server{
		impl:       impl,
		numWorkers: 4,
		log:        slog.Default(),
		tools:      newToolRegistry(),
		prompts:    newPromptRegistry(),
		resources:  newResourceRegistry(),
		registry:   NewRegistry(),
		sessions:   make(map[string]*ServerSession),
	}
	if opts != nil {
		if opts.NumThreads > 0 {
			s.numWorkers = opts.NumThreads
		}
		if opts.Logger != nil {
			s.log = opts.Logger
		}
		s.caps = opts.Capabilities
	}
	return s
}

func (s *Server) logger() *slog.Logger { return s.log }

// Registry exposes the server's Subscription Registry, e.g. so a
// LoggingHandler can be built against it.
func (s *Server) Registry() *Registry { return s.registry }

// AddTools installs tools, replacing any existing tool of the same name, and
// notifies tools-list-changed subscribers (spec §3 "Tool... entry":
// "removal triggers a list-changed notification"; addition does too, by the
// same reasoning the source framework applies symmetrically).
func (s *Server) AddTools(tools ...*ServerTool) {
	s.tools.set.add(tools...)
	s.registry.NotifyToolsListChanged()
}

func (s *Server) RemoveTools(names ...string) {
	if s.tools.set.remove(names...) {
		s.registry.NotifyToolsListChanged()
	}
}

func (s *Server) AddPrompts(prompts ...*ServerPrompt) {
	s.prompts.set.add(prompts...)
	s.registry.NotifyPromptsListChanged()
}

func (s *Server) RemovePrompts(names ...string) {
	if s.prompts.set.remove(names...) {
		s.registry.NotifyPromptsListChanged()
	}
}

func (s *Server) AddResources(resources ...*ServerResource) {
	s.resources.set.add(resources...)
}

func (s *Server) RemoveResources(uris ...string) {
	s.resources.set.remove(uris...)
}

// NotifyResourceUpdated pushes notifications/resources/updated to every
// subscriber of uri (spec §4.4 server-push).
func (s *Server) NotifyResourceUpdated(uri string, meta map[string]any) {
	s.registry.NotifyResourceUpdated(uri, meta)
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Connect accepts one new session from t and begins serving it (spec §4.2:
// "control flow for a normal request"). The returned ServerSession is live
// immediately; its state starts at StateDisconnected and transitions to
// StateInitializing on the peer's "initialize" call.
func (s *Server) Connect(ctx context.Context, t Transport) (*ServerSession, error) {
	stream, id, err := t.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return s.newSession(stream, id), nil
}

// newSession wires a raw Stream into a live ServerSession. It is used
// directly by transports (like HTTP+SSE) that accept many sessions
// dynamically rather than going through the one-shot Transport.Accept
// contract.
func (s *Server) newSession(stream jsonrpc2.Stream, id string) *ServerSession {
	var ss *ServerSession
	conn := jsonrpc2.NewConnection(stream,
		func(ctx context.Context, req *jsonrpc2.Request) (any, error) {
			return s.handleRequest(ctx, ss, req)
		},
		func(ctx context.Context, n *jsonrpc2.Notification) {
			s.handleNotification(ctx, ss, n)
		},
		&jsonrpc2.Options{NumWorkers: s.numWorkers, Logger: s.log},
	)
	ss = newServerSession(id, s, conn)
	conn.Start()

	s.mu.Lock()
	s.sessions[id] = ss
	s.mu.Unlock()
	return ss
}

// handleRequest is the method table of spec §4.4, enforcing the pre-state
// column and returning the documented error codes.
func (s *Server) handleRequest(ctx context.Context, ss *ServerSession, req *jsonrpc2.Request) (any, error) {
	state := ss.State()

	if req.Method != "initialize" && state == StateDisconnected {
		return nil, jsonrpc2RequestBeforeInit("request before initialization: " + req.Method)
	}

	switch req.Method {
	case "initialize":
		var p InitializeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		return s.doInitialize(ss, p)
	case "ping":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("ping before session ready")
		}
		return &emptyResult{}, nil
	case "tools/list":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("tools/list before session ready")
		}
		var p ListToolsParams
		_ = json.Unmarshal(req.Params, &p)
		return s.doListTools(p), nil
	case "tools/call":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("tools/call before session ready")
		}
		var p CallToolParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		return s.doCallTool(ctx, ss, p)
	case "prompts/list":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("prompts/list before session ready")
		}
		var p ListPromptsParams
		_ = json.Unmarshal(req.Params, &p)
		return s.doListPrompts(p), nil
	case "prompts/get":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("prompts/get before session ready")
		}
		var p GetPromptParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		return s.doGetPrompt(ctx, ss, p)
	case "resources/list":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("resources/list before session ready")
		}
		var p ListResourcesParams
		_ = json.Unmarshal(req.Params, &p)
		return s.doListResources(p), nil
	case "resources/read":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("resources/read before session ready")
		}
		var p ReadResourceParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		return s.doReadResource(ctx, ss, p)
	case "resources/subscribe":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("resources/subscribe before session ready")
		}
		if s.caps.Resources == nil || !s.caps.Resources.Subscribe {
			return nil, jsonrpc2UnsupportedMethod("resources/subscribe")
		}
		var p SubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		return s.doSubscribe(ss, p)
	case "resources/unsubscribe":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("resources/unsubscribe before session ready")
		}
		var p UnsubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		s.registry.UnsubscribeResource(ss.id, p.URI)
		return &emptyResult{}, nil
	case "logging/setLevel":
		if state != StateReady {
			return nil, jsonrpc2RequestBeforeInit("logging/setLevel before session ready")
		}
		if s.caps.Logging == nil {
			return nil, jsonrpc2UnsupportedMethod("logging/setLevel")
		}
		var p SetLevelParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, jsonrpc2InvalidParams(err.Error())
		}
		if !IsValidLoggingLevel(string(p.Level)) {
			return nil, jsonrpc2InvalidParams("invalid log level: " + string(p.Level))
		}
		ss.mu.Lock()
		ss.logLevel = p.Level
		ss.mu.Unlock()
		s.registry.SetLogThreshold(ss.id, p.Level)
		return &emptyResult{}, nil
	default:
		return nil, jsonrpc2MethodNotFound("unknown method: " + req.Method)
	}
}

func (s *Server) handleNotification(_ context.Context, ss *ServerSession, n *jsonrpc2.Notification) {
	switch n.Method {
	case "notifications/initialized":
		if ss.State() == StateInitializing {
			ss.setState(StateReady)
			// A session that negotiated the list-changed capability receives
			// every subsequent add/remove broadcast for that catalog (spec
			// §4.4 "tools/list_changed", "prompts/list_changed").
			if s.caps.Tools != nil && s.caps.Tools.ListChanged {
				s.registry.SubscribeToolsListChanged(ss.id)
			}
			if s.caps.Prompts != nil && s.caps.Prompts.ListChanged {
				s.registry.SubscribePromptsListChanged(ss.id)
			}
			// The log-message threshold defaults to LevelError (spec §4.4,
			// §8 property 5) even for a session that never calls
			// logging/setLevel.
			if s.caps.Logging != nil {
				s.registry.SetLogThreshold(ss.id, LevelError)
			}
		}
	default:
		s.log.Debug("dropping unhandled notification", "method", n.Method)
	}
}

func (s *Server) doInitialize(ss *ServerSession, p InitializeParams) (*InitializeResult, error) {
	version, supported := negotiateVersion(p.ProtocolVersion)
	if !supported {
		s.log.Warn("client requested an unsupported protocol version, falling back to latest",
			"requested", p.ProtocolVersion, "negotiated", version)
	}
	ss.mu.Lock()
	ss.version = version
	ss.clientInfo = p.ClientInfo
	ss.clientCaps = p.Capabilities
	ss.mu.Unlock()
	ss.setState(StateInitializing)

	caps := s.shapeCapabilities(version)
	si := s.impl
	if !supportsServerTitle(version) {
		si.Title = ""
	}
	return &InitializeResult{ProtocolVersion: version, Capabilities: caps, ServerInfo: si}, nil
}

// shapeCapabilities applies the per-version capability shape mutation (spec
// §4.4: "newer versions permit nested option maps; older versions flatten
// to tools: {}").
func (s *Server) shapeCapabilities(version string) ServerCapabilities {
	caps := s.caps
	if supportsNestedCapabilities(version) {
		return caps
	}
	if caps.Tools != nil {
		flat := ListChangedCapable{}
		caps.Tools = &flat
	}
	if caps.Prompts != nil {
		flat := ListChangedCapable{}
		caps.Prompts = &flat
	}
	if caps.Resources != nil {
		flat := ResourceCapability{}
		caps.Resources = &flat
	}
	return caps
}

func (s *Server) doListTools(p ListToolsParams) *ListToolsResult {
	items, next := s.tools.set.page(p.Cursor, defaultPageSize)
	res := &ListToolsResult{NextCursor: next}
	for _, t := range items {
		res.Tools = append(res.Tools, t.Tool)
	}
	return res
}

func (s *Server) doCallTool(ctx context.Context, ss *ServerSession, p CallToolParams) (*CallToolResult, error) {
	st, ok := s.tools.set.get(p.Name)
	if !ok {
		return nil, jsonrpc2InvalidParamsWithData(fmt.Sprintf("Unknown tool: %s", p.Name), map[string]any{"name": p.Name})
	}
	args := p.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := st.validate(args); err != nil {
		return nil, err
	}
	res, err := st.Handler(ctx, ss, args)
	if err != nil {
		// A *jsonrpc2.WireError is a deliberate protocol-level error (e.g. the
		// handler rejecting malformed input); anything else is an application
		// failure reported as a successful RPC response with isError: true
		// (spec §4.4, §7: "NOT RPC errors; they are successful RPC responses").
		if we, ok := err.(*jsonrpc2.WireError); ok {
			return nil, we
		}
		return &CallToolResult{Content: []*Content{NewTextContent(err.Error())}, IsError: true}, nil
	}
	if !supportsAudioContent(ss.version) {
		for _, c := range res.Content {
			if c.Type == "audio" {
				return nil, jsonrpc2InvalidParams("audio content not supported at negotiated protocol version")
			}
		}
	}
	if !supportsStructuredContent(ss.version) {
		res.StructuredContent = nil
	}
	return res, nil
}

func (s *Server) doListPrompts(p ListPromptsParams) *ListPromptsResult {
	items, next := s.prompts.set.page(p.Cursor, defaultPageSize)
	res := &ListPromptsResult{NextCursor: next}
	for _, pr := range items {
		res.Prompts = append(res.Prompts, pr.Prompt)
	}
	return res
}

func (s *Server) doGetPrompt(ctx context.Context, ss *ServerSession, p GetPromptParams) (*GetPromptResult, error) {
	sp, ok := s.prompts.set.get(p.Name)
	if !ok {
		return nil, jsonrpc2InvalidParams(fmt.Sprintf("Unknown prompt: %s", p.Name))
	}
	if err := sp.validate(p.Arguments); err != nil {
		return nil, err
	}
	return sp.Handler(ctx, ss, p.Arguments)
}

func (s *Server) doListResources(p ListResourcesParams) *ListResourcesResult {
	items, next := s.resources.set.page(p.Cursor, defaultPageSize)
	res := &ListResourcesResult{NextCursor: next}
	for _, r := range items {
		res.Resources = append(res.Resources, r.Resource)
	}
	return res
}

func (s *Server) doReadResource(ctx context.Context, ss *ServerSession, p ReadResourceParams) (*ReadResourceResult, error) {
	sr, ok := s.resources.set.get(p.URI)
	if !ok {
		return nil, ResourceNotFoundError(p.URI)
	}
	return sr.Handler(ctx, ss, p.URI)
}

func (s *Server) doSubscribe(ss *ServerSession, p SubscribeParams) (*emptyResult, error) {
	if _, ok := s.resources.set.get(p.URI); !ok {
		return nil, jsonrpc2InvalidParams("cannot subscribe to unknown resource: " + p.URI)
	}
	s.registry.SubscribeResource(ss.id, p.URI)
	return &emptyResult{}, nil
}
