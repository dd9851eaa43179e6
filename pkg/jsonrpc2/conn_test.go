package jsonrpc2

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"
)

// pairedStreams returns two Streams, each writing onto the other's read side,
// mirroring the duplex contract NewInMemoryTransports builds for the mcp
// package but scoped to this package's own tests.
func pairedStreams() (Stream, Stream) {
	aToB := make(chan Message, 16)
	bToA := make(chan Message, 16)
	return &chanStream{out: aToB, in: bToA}, &chanStream{out: bToA, in: aToB}
}

type chanStream struct {
	out     chan Message
	in      chan Message
	closeMu sync.Mutex
	closed  bool
}

func (s *chanStream) Read(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-s.in:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanStream) Write(ctx context.Context, msg Message) error {
	s.closeMu.Lock()
	closed := s.closed
	s.closeMu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	select {
	case s.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chanStream) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.in)
	}
	return nil
}

func TestConnectionCallReply(t *testing.T) {
	serverStream, clientStream := pairedStreams()

	server := NewConnection(serverStream, func(ctx context.Context, req *Request) (any, error) {
		var args struct{ X int }
		if err := json.Unmarshal(req.Params, &args); err != nil {
			return nil, err
		}
		return map[string]int{"doubled": args.X * 2}, nil
	}, nil, nil)
	server.Start()
	defer server.Close()

	client := NewConnection(clientStream, nil, nil, nil)
	client.Start()
	defer client.Close()

	raw, err := client.Call(context.Background(), "double", map[string]int{"X": 21})
	if err != nil {
		t.Fatal(err)
	}
	var got struct{ Doubled int }
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Doubled != 42 {
		t.Errorf("Doubled = %d, want 42", got.Doubled)
	}
}

func TestConnectionCallPropagatesWireError(t *testing.T) {
	serverStream, clientStream := pairedStreams()

	server := NewConnection(serverStream, func(ctx context.Context, req *Request) (any, error) {
		return nil, NewError(CodeInvalidParams, "bad input")
	}, nil, nil)
	server.Start()
	defer server.Close()

	client := NewConnection(clientStream, nil, nil, nil)
	client.Start()
	defer client.Close()

	_, err := client.Call(context.Background(), "anything", nil)
	we, ok := err.(*WireError)
	if !ok {
		t.Fatalf("error is %T, want *WireError", err)
	}
	if we.Code != CodeInvalidParams || we.Message != "bad input" {
		t.Errorf("got %+v", we)
	}
}

func TestConnectionNotify(t *testing.T) {
	serverStream, clientStream := pairedStreams()

	received := make(chan string, 1)
	server := NewConnection(serverStream, nil, func(ctx context.Context, n *Notification) {
		received <- n.Method
	}, nil)
	server.Start()
	defer server.Close()

	client := NewConnection(clientStream, nil, nil, nil)
	client.Start()
	defer client.Close()

	if err := client.Notify(context.Background(), "notifications/initialized", nil); err != nil {
		t.Fatal(err)
	}

	select {
	case method := <-received:
		if method != "notifications/initialized" {
			t.Errorf("method = %q", method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	stream, _ := pairedStreams()
	conn := NewConnection(stream, nil, nil, nil)
	conn.Start()

	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close returned %v, want nil", err)
	}
}

func TestConnectionMethodNotFoundWithNilHandler(t *testing.T) {
	serverStream, clientStream := pairedStreams()

	server := NewConnection(serverStream, nil, nil, nil)
	server.Start()
	defer server.Close()

	client := NewConnection(clientStream, nil, nil, nil)
	client.Start()
	defer client.Close()

	_, err := client.Call(context.Background(), "nope", nil)
	we, ok := err.(*WireError)
	if !ok {
		t.Fatalf("error is %T, want *WireError", err)
	}
	if we.Code != CodeMethodNotFound {
		t.Errorf("Code = %d, want %d", we.Code, CodeMethodNotFound)
	}
}
