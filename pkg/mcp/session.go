package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

// SessionState is a node in the session lifecycle state machine (spec §3
// "Session", §4.5): disconnected -> initializing -> ready -> error ->
// disconnected.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateInitializing
	StateReady
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// invalidTransitionError describes an invalid session state transition. No
// code path in this package returns it: setState on both ServerSession and
// ClientSession accepts any transition without checking it.
type invalidTransitionError struct {
	from, to SessionState
}

func (e *invalidTransitionError) Error() string {
	return fmt.Sprintf("mcp: invalid session state transition %s -> %s", e.from, e.to)
}

// ServerSession is one connected peer from the server's point of view
// (spec §3 "Session"). Exactly one exists per transport endpoint.
type ServerSession struct {
	id     string
	server *Server
	conn   *jsonrpc2.Connection

	mu              sync.Mutex
	state           SessionState
	version         string
	clientInfo      Implementation
	clientCaps      ClientCapabilities
	logLevel        LoggingLevel
	subscribedTools bool
	subscribedProm  bool

	stopDeliver chan struct{}
}

func newServerSession(id string, server *Server, conn *jsonrpc2.Connection) *ServerSession {
	ss := &ServerSession{
		id:          id,
		server:      server,
		conn:        conn,
		state:       StateDisconnected,
		logLevel:    LevelError, // spec §4.4 "Default threshold is error"
		stopDeliver: make(chan struct{}),
	}
	go ss.deliverLoop()
	return ss
}

// ID returns the session id (spec §3: "stable for HTTP+SSE, fixed literal
// \"stdio\" for the single stdio session, generated for in-memory").
func (ss *ServerSession) ID() string { return ss.id }

func (ss *ServerSession) State() SessionState {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.state
}

func (ss *ServerSession) setState(s SessionState) {
	ss.mu.Lock()
	ss.state = s
	ss.mu.Unlock()
}

// LogLevel returns the session's current log-message threshold.
func (ss *ServerSession) LogLevel() LoggingLevel {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.logLevel
}

// Wait blocks until the session's connection read loop exits, e.g. because
// the peer closed the transport.
func (ss *ServerSession) Wait() { ss.conn.Wait() }

// deliverLoop forwards Subscription Registry events addressed to this
// session onto the wire as notifications, decoupling registry bookkeeping
// from transport writes (spec §4.4 server-push, §5 ordering: "for a single
// subscriber they are delivered in the order the server emitted them").
func (ss *ServerSession) deliverLoop() {
	ch := ss.server.registry.sessionChannel(ss.id)
	for {
		select {
		case <-ss.stopDeliver:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			re := ev.(registryEvent)
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			if err := ss.conn.Notify(ctx, re.method, re.params); err != nil {
				ss.server.logger().Debug("failed delivering notification", "method", re.method, "error", err)
			}
			cancel()
		}
	}
}

// Close tears the session down: subscriptions are scrubbed from the
// registry, outstanding requests on the connection fail, and the
// transport connection closes (spec §3 "Lifecycle").
func (ss *ServerSession) Close() error {
	close(ss.stopDeliver)
	ss.server.registry.dropSession(ss.id)
	ss.server.dropSession(ss.id)
	ss.setState(StateDisconnected)
	return ss.conn.Close()
}

// LoggingMessage sends a notifications/message directly to this session,
// filtered only by this session's own threshold. The LoggingHandler bridge
// goes through Registry.LogMessage instead, which reaches only sessions with
// a registered threshold (registered when the server declared a logging
// capability); this method does not depend on that registration.
func (ss *ServerSession) LoggingMessage(ctx context.Context, level LoggingLevel, logger string, data any) error {
	if compareLevels(level, ss.LogLevel()) > 0 {
		return nil // below this session's threshold
	}
	return ss.conn.Notify(ctx, "notifications/message", LoggingMessageParams{Level: level, Logger: logger, Data: data})
}
