package jsonrpc2

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRequest(t *testing.T) {
	req := &Request{ID: Int64ID(7), Method: "tools/list", Params: json.RawMessage(`{"cursor":"x"}`)}
	data, err := Encode(req)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := msg.(*Request)
	if !ok {
		t.Fatalf("Decode returned %T, want *Request", msg)
	}
	if diff := cmp.Diff(req, got, cmp.AllowUnexported(ID{})); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeNotification(t *testing.T) {
	n := &Notification{Method: "notifications/initialized"}
	data, err := Encode(n)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := msg.(*Notification)
	if !ok {
		t.Fatalf("Decode returned %T, want *Notification", msg)
	}
	if got.Method != n.Method {
		t.Errorf("Method = %q, want %q", got.Method, n.Method)
	}
	if string(got.Params) != `{}` {
		t.Errorf("absent params should normalize to {}, got %q", got.Params)
	}
}

func TestEncodeDecodeResponseWithError(t *testing.T) {
	resp := &Response{ID: StringID("a"), Error: NewError(CodeInvalidParams, "bad args")}
	data, err := Encode(resp)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := msg.(*Response)
	if !ok {
		t.Fatalf("Decode returned %T, want *Response", msg)
	}
	if got.Error == nil || got.Error.Code != CodeInvalidParams || got.Error.Message != "bad args" {
		t.Errorf("Error = %+v, want code %d message %q", got.Error, CodeInvalidParams, "bad args")
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"1.0","method":"ping","id":1}`))
	if err == nil {
		t.Fatal("expected an error for a non-2.0 envelope")
	}
	we, ok := err.(*WireError)
	if !ok {
		t.Fatalf("error is %T, want *WireError", err)
	}
	if we.Code != CodeInvalidRequest {
		t.Errorf("Code = %d, want %d", we.Code, CodeInvalidRequest)
	}
}

func TestDecodeRejectsUnrecognizedShape(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0"}`))
	if err == nil {
		t.Fatal("expected an error for a message that is neither request, notification, nor response")
	}
}

func TestDecodeBatch(t *testing.T) {
	data := []byte(`[{"jsonrpc":"2.0","method":"ping","id":1},{"jsonrpc":"2.0","method":"notifications/x"}]`)
	msgs, err := DecodeBatch(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if _, ok := msgs[0].(*Request); !ok {
		t.Errorf("msgs[0] is %T, want *Request", msgs[0])
	}
	if _, ok := msgs[1].(*Notification); !ok {
		t.Errorf("msgs[1] is %T, want *Notification", msgs[1])
	}
}

func TestDecodeBatchSingle(t *testing.T) {
	msgs, err := DecodeBatch([]byte(`{"jsonrpc":"2.0","method":"ping","id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestIDRoundtrip(t *testing.T) {
	for _, id := range []ID{Int64ID(42), StringID("s"), {}} {
		data, err := json.Marshal(id)
		if err != nil {
			t.Fatal(err)
		}
		var got ID
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got.Raw() != id.Raw() {
			t.Errorf("roundtrip %v -> %v", id.Raw(), got.Raw())
		}
	}
}
