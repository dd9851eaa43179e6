package mcp

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

// Transport is the server side of a pluggable wire transport (spec §4.2):
// it accepts one new session at a time, producing a message Stream and the
// session id to associate with it. Stdio and in-memory transports are
// single-session and Accept exactly once; HTTP+SSE bypasses this interface
// (it creates sessions dynamically per incoming SSE connection) and talks
// to Server.newSession directly.
type Transport interface {
	Accept(ctx context.Context) (jsonrpc2.Stream, string, error)
}

// ClientTransport is the client side of a pluggable wire transport: it
// dials out and produces a message Stream.
type ClientTransport interface {
	Connect(ctx context.Context) (jsonrpc2.Stream, error)
}

// pipeConn is a minimal io.ReadWriteCloser over a pair of io.Pipe halves,
// giving the in-memory transport the same byte-level contract a real
// socket would have (spec §4.2 "In-memory transport... the contract is
// identical to the other transports").
type pipeConn struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	closeOne sync.Once
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeConn) Close() error {
	p.closeOne.Do(func() {
		p.r.Close()
		p.w.Close()
	})
	return nil
}

// inMemoryTransport is shared state between the server and client halves of
// NewInMemoryTransports: it holds the one server-side stream, queued when the
// pair is built, which the first Accept call takes; later Accept calls fail.
type inMemoryTransport struct {
	accept chan jsonrpc2.Stream
	once   sync.Once
}

// NewInMemoryTransports returns a connected pair of transports joined by two
// in-process io.Pipes, with messages JSON-encoded through RawFramer, for
// tests (spec §4.2 "In-memory transport").
func NewInMemoryTransports() (Transport, ClientTransport) {
	shared := &inMemoryTransport{accept: make(chan jsonrpc2.Stream, 1)}

	aToB_r, aToB_w := io.Pipe()
	bToA_r, bToA_w := io.Pipe()

	serverConn := &pipeConn{r: aToB_r, w: bToA_w}
	clientConn := &pipeConn{r: bToA_r, w: aToB_w}

	serverStream := jsonrpc2.NewIOStream(serverConn, jsonrpc2.RawFramer())
	clientStream := jsonrpc2.NewIOStream(clientConn, jsonrpc2.RawFramer())

	shared.accept <- serverStream
	return &inMemoryServerTransport{shared: shared}, &inMemoryClientTransport{stream: clientStream}
}

type inMemoryServerTransport struct {
	shared *inMemoryTransport
}

func (t *inMemoryServerTransport) Accept(ctx context.Context) (jsonrpc2.Stream, string, error) {
	select {
	case s, ok := <-t.shared.accept:
		if !ok {
			return nil, "", fmt.Errorf("mcp: in-memory transport already accepted")
		}
		t.shared.once.Do(func() { close(t.shared.accept) })
		return s, uuid.NewString(), nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

type inMemoryClientTransport struct {
	stream jsonrpc2.Stream
}

func (t *inMemoryClientTransport) Connect(ctx context.Context) (jsonrpc2.Stream, error) {
	return t.stream, nil
}
