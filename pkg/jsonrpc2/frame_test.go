package jsonrpc2

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestNDJSONFramerRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	framer := NDJSONFramer()
	w := framer.Writer(&buf)
	ctx := context.Background()

	want := []Message{
		&Request{ID: Int64ID(1), Method: "ping"},
		&Notification{Method: "notifications/initialized"},
	}
	for _, m := range want {
		if err := w.Write(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	r := framer.Reader(&buf)
	for i, wm := range want {
		got, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		switch wm.(type) {
		case *Request:
			if _, ok := got.(*Request); !ok {
				t.Errorf("message %d is %T, want *Request", i, got)
			}
		case *Notification:
			if _, ok := got.(*Notification); !ok {
				t.Errorf("message %d is %T, want *Notification", i, got)
			}
		}
	}
	if _, err := r.Read(ctx); err != io.EOF {
		t.Errorf("final Read error = %v, want io.EOF", err)
	}
}

func TestNDJSONFramerSkipsMalformedLines(t *testing.T) {
	buf := bytes.NewBufferString("not json\n{\"jsonrpc\":\"2.0\",\"method\":\"ping\",\"id\":1}\n")
	r := NDJSONFramer().Reader(buf)

	_, err := r.Read(context.Background())
	var mle *MalformedLineError
	if !errors.As(err, &mle) {
		t.Fatalf("first Read error = %v, want *MalformedLineError", err)
	}

	msg, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if _, ok := msg.(*Request); !ok {
		t.Errorf("second Read returned %T, want *Request", msg)
	}
}

func TestNDJSONFramerSkipsBlankLines(t *testing.T) {
	buf := bytes.NewBufferString("\n\n{\"jsonrpc\":\"2.0\",\"method\":\"ping\",\"id\":1}\n")
	r := NDJSONFramer().Reader(buf)
	msg, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := msg.(*Request); !ok {
		t.Errorf("got %T, want *Request", msg)
	}
}

func TestRawFramerRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	framer := RawFramer()
	w := framer.Writer(&buf)
	ctx := context.Background()

	if err := w.Write(ctx, &Request{ID: Int64ID(9), Method: "tools/list"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(ctx, &Notification{Method: "notifications/x"}); err != nil {
		t.Fatal(err)
	}

	r := framer.Reader(&buf)
	m1, err := r.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m1.(*Request); !ok {
		t.Errorf("first message is %T, want *Request", m1)
	}
	m2, err := r.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m2.(*Notification); !ok {
		t.Errorf("second message is %T, want *Notification", m2)
	}
}
