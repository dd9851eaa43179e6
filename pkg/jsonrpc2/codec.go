// Package jsonrpc2 implements the JSON-RPC 2.0 envelope and the bidirectional
// request/response/notification runtime that MCP is layered on top of.
package jsonrpc2

import (
	"encoding/json"
	"fmt"
)

const wireVersion = "2.0"

// ID is a request identifier: either an int64 or a string, per the JSON-RPC
// 2.0 spec. The zero ID is invalid and is used for notifications, which
// carry no id on the wire.
type ID struct {
	str    string
	num    int64
	isStr  bool
	isUsed bool
}

// Int64ID creates an integer request id.
func Int64ID(i int64) ID { return ID{num: i, isUsed: true} }

// StringID creates a string request id.
func StringID(s string) ID { return ID{str: s, isStr: true, isUsed: true} }

// IsValid reports whether the id was explicitly set.
func (id ID) IsValid() bool { return id.isUsed }

// Raw returns the id's underlying value: int64, string, or nil.
func (id ID) Raw() any {
	if !id.isUsed {
		return nil
	}
	if id.isStr {
		return id.str
	}
	return id.num
}

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return fmt.Sprintf("%d", id.num)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.isUsed {
		return []byte("null"), nil
	}
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*id = ID{}
	case float64:
		*id = Int64ID(int64(v))
	case string:
		*id = StringID(v)
	default:
		return fmt.Errorf("%w: invalid id type %T", ErrParse, v)
	}
	return nil
}

// Message is the closed set of wire shapes the codec understands: *Request,
// *Response, and *Notification (spec: "tagged variant over three shapes").
type Message interface {
	isMessage()
}

// Request is a call that expects a Response carrying the same ID.
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

// Notification is a one-way message: no ID, no reply expected.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Response replies to a Request with the same ID.
type Response struct {
	ID     ID
	Result json.RawMessage
	Error  *WireError
}

func (*Request) isMessage()      {}
func (*Notification) isMessage() {}
func (*Response) isMessage()     {}

// WireError is the JSON-RPC 2.0 error object. A handler that returns a
// *WireError controls the code and data sent on the wire; any other error
// is wrapped as CodeInternalError.
type WireError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *WireError) Error() string { return e.Message }

// NewError builds a *WireError with the given code and message.
func NewError(code int64, message string) *WireError {
	return &WireError{Code: code, Message: message}
}

// Standard and MCP-core-specific error codes (spec §6, §7).
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeServerOverloaded     = -32000
	CodeUnsupportedVersion   = -32001
	CodeRequestBeforeInit    = -32002
)

var ErrParse = NewError(CodeParseError, "parse error")

// wireEnvelope is the on-the-wire shape shared by all three message kinds;
// decode dispatches on which fields are present, encode fills in exactly the
// fields relevant to the concrete Message.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// Encode renders a Message to its wire form.
func Encode(msg Message) ([]byte, error) {
	env := wireEnvelope{JSONRPC: wireVersion}
	switch m := msg.(type) {
	case *Request:
		id := m.ID
		env.ID = &id
		env.Method = m.Method
		env.Params = m.Params
	case *Notification:
		env.Method = m.Method
		env.Params = m.Params
	case *Response:
		id := m.ID
		env.ID = &id
		env.Result = m.Result
		env.Error = m.Error
	default:
		return nil, fmt.Errorf("jsonrpc2: unknown message type %T", msg)
	}
	return json.Marshal(env)
}

// Decode parses a single JSON-RPC object into a Message, validating the
// envelope per spec §4.1: a bad "jsonrpc" tag is CodeInvalidRequest; an
// unrecognized shape is also CodeInvalidRequest.
func Decode(data []byte) (Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if env.JSONRPC != wireVersion {
		return nil, NewError(CodeInvalidRequest, fmt.Sprintf("invalid or missing jsonrpc version %q", env.JSONRPC))
	}
	switch {
	case env.Method != "" && env.ID == nil:
		return &Notification{Method: env.Method, Params: normalizeParams(env.Params)}, nil
	case env.Method != "" && env.ID != nil:
		return &Request{ID: *env.ID, Method: env.Method, Params: normalizeParams(env.Params)}, nil
	case env.Method == "" && env.ID != nil:
		return &Response{ID: *env.ID, Result: env.Result, Error: env.Error}, nil
	default:
		return nil, NewError(CodeInvalidRequest, "message is neither a request, a notification, nor a response")
	}
}

// normalizeParams surfaces an absent or null params as an empty object, per
// spec §4.1 ("absent params is... surfaced as an empty keyed map").
func normalizeParams(p json.RawMessage) json.RawMessage {
	if len(p) == 0 || string(p) == "null" {
		return json.RawMessage(`{}`)
	}
	return p
}

// DecodeBatch parses either a single JSON-RPC object or a JSON array of them
// (spec §4.2 POST batch support).
func DecodeBatch(data []byte) ([]Message, error) {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		msgs := make([]Message, 0, len(raws))
		for _, raw := range raws {
			m, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	}
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return []Message{m}, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}
