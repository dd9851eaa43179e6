package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

const sseQueueCapacity = 1024

// HTTPOptions configures the HTTP+SSE transport (spec §6 create-server
// "{type: :http, port, allowed-origins?}").
type HTTPOptions struct {
	AllowedOrigins []string
}

// HTTPHandler is an http.Handler implementing the HTTP+SSE transport (spec
// §4.2): GET / for the capability descriptor, GET /sse for the
// Server-Sent-Events stream, and POST / or POST /messages for delivering
// requests/notifications/batches.
type HTTPHandler struct {
	server *Server
	opts   HTTPOptions

	mu       sync.Mutex
	sessions map[string]*sseSession
}

// NewHTTPHandler builds an HTTPHandler serving server over HTTP+SSE.
func NewHTTPHandler(server *Server, opts *HTTPOptions) *HTTPHandler {
	h := &HTTPHandler{server: server, sessions: make(map[string]*sseSession)}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Router returns the chi-routed http.Handler (spec §6 "HTTP+SSE" routes).
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.checkOrigin)
	r.Get("/", h.handleCapabilities)
	r.Get("/sse", h.handleSSE)
	r.Post("/", h.handlePost)
	r.Post("/messages", h.handlePost)
	r.Delete("/", h.handleDelete)
	return r
}

// checkOrigin enforces the optional allowed-Origin allowlist (spec §4.2:
// "any other non-empty Origin yields 400; requests without an Origin header
// are allowed").
func (h *HTTPHandler) checkOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && len(h.opts.AllowedOrigins) > 0 {
			allowed := false
			for _, o := range h.opts.AllowedOrigins {
				if o == origin {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "origin not allowed", http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPHandler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"transport": "streamable-http",
		"version":   LatestVersion,
		"capabilities": map[string]bool{
			"sse":        true,
			"batch":      true,
			"resumable":  false,
		},
	})
}

func (h *HTTPHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported by this ResponseWriter", http.StatusInternalServerError)
		return
	}
	id := uuid.NewString()
	sess := newSSESession()
	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
		sess.Close()
	}()

	ss := h.server.newSession(sess, id)
	defer ss.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Mcp-Session-Id", id)
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.done:
			return
		case msg, ok := <-sess.outbox:
			if !ok {
				return
			}
			data, err := jsonrpc2.Encode(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-ID")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	msgs, err := jsonrpc2.DecodeBatch(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if sessionID != "" {
		h.mu.Lock()
		sess, ok := h.sessions[sessionID]
		h.mu.Unlock()
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		for _, m := range msgs {
			sess.deliverInbound(m)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("Accepted"))
		return
	}

	// Synchronous batch / non-SSE path (spec §8 S6): process the whole
	// batch against a short-lived session and reply with the JSON-RPC
	// results directly in the HTTP body.
	ss := h.server.newSession(newDiscardStream(), uuid.NewString())
	defer ss.Close()

	var responses []*jsonrpc2.Response
	for _, m := range msgs {
		switch mm := m.(type) {
		case *jsonrpc2.Notification:
			h.server.handleNotification(r.Context(), ss, mm)
		case *jsonrpc2.Request:
			res, err := h.server.handleRequest(r.Context(), ss, mm)
			responses = append(responses, buildResponse(mm.ID, res, err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeResponses(w, responses, isBatchBody(body))
}

// writeResponses renders responses onto w using jsonrpc2.Encode for each
// entry so the wire envelope ("jsonrpc", "id", "result"/"error") matches
// every other transport, rather than encoding *jsonrpc2.Response's Go field
// names directly.
func writeResponses(w http.ResponseWriter, responses []*jsonrpc2.Response, asBatch bool) {
	raws := make([]json.RawMessage, len(responses))
	for i, resp := range responses {
		data, err := jsonrpc2.Encode(resp)
		if err != nil {
			data, _ = jsonrpc2.Encode(&jsonrpc2.Response{
				ID:    resp.ID,
				Error: jsonrpc2.NewError(jsonrpc2.CodeInternalError, err.Error()),
			})
		}
		raws[i] = data
	}
	if !asBatch && len(raws) == 1 {
		_, _ = w.Write(raws[0])
		return
	}
	_ = json.NewEncoder(w).Encode(raws)
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.Header.Get("Mcp-Session-Id")
	}
	if sessionID == "" {
		http.Error(w, "DELETE requires a session id", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func buildResponse(id jsonrpc2.ID, result any, err error) *jsonrpc2.Response {
	resp := &jsonrpc2.Response{ID: id}
	if err != nil {
		if we, ok := err.(*jsonrpc2.WireError); ok {
			resp.Error = we
		} else {
			resp.Error = jsonrpc2.NewError(jsonrpc2.CodeInternalError, err.Error())
		}
		return resp
	}
	raw, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = jsonrpc2.NewError(jsonrpc2.CodeInternalError, merr.Error())
		return resp
	}
	resp.Result = raw
	return resp
}

func isBatchBody(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// sseSession implements jsonrpc2.Stream for one SSE-backed session: inbound
// messages arrive from POST handlers via deliverInbound, outbound messages
// are drained by the GET /sse goroutine holding the http.ResponseWriter.
// outbox is bounded (spec §4.2: "bounded outbound queue... when full, the
// slowest session is terminated rather than blocking producers").
type sseSession struct {
	inbox  chan jsonrpc2.Message
	outbox chan jsonrpc2.Message
	done   chan struct{}
	once   sync.Once
	full   int32 // atomic; set when a Write had to drop a message
}

func newSSESession() *sseSession {
	return &sseSession{
		inbox:  make(chan jsonrpc2.Message, 256),
		outbox: make(chan jsonrpc2.Message, sseQueueCapacity),
		done:   make(chan struct{}),
	}
}

func (s *sseSession) deliverInbound(m jsonrpc2.Message) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

func (s *sseSession) Read(ctx context.Context) (jsonrpc2.Message, error) {
	select {
	case m, ok := <-s.inbox:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *sseSession) Write(ctx context.Context, m jsonrpc2.Message) error {
	select {
	case s.outbox <- m:
		return nil
	default:
	}
	// Outbound queue full: terminate this slow session rather than block
	// the producer (spec §4.2).
	if atomic.CompareAndSwapInt32(&s.full, 0, 1) {
		s.Close()
	}
	return fmt.Errorf("mcp: sse session outbound queue full, session terminated")
}

func (s *sseSession) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	return nil
}

// discardStream is the Stream used for ephemeral, synchronous-batch HTTP
// sessions (spec §8 S6): there is no live consumer for pushed notifications,
// so writes are simply dropped, and reads immediately see EOF since the
// caller drives dispatch directly rather than through the Connection's read
// loop.
type discardStream struct{}

func newDiscardStream() jsonrpc2.Stream { return discardStream{} }

func (discardStream) Read(ctx context.Context) (jsonrpc2.Message, error) { return nil, io.EOF }
func (discardStream) Write(ctx context.Context, m jsonrpc2.Message) error { return nil }
func (discardStream) Close() error                                       { return nil }
