package mcp

import (
	"encoding/json"

	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

// MCP-specific error codes, carved out of the range jsonrpc2 leaves free
// (spec §7 note: the "resource not found" code intentionally avoids
// colliding with jsonrpc2's own reserved -32002).
const (
	CodeResourceNotFound  = -31002
	CodeUnsupportedMethod = -31001
)

func jsonrpc2InvalidParams(msg string) error {
	return jsonrpc2.NewError(jsonrpc2.CodeInvalidParams, msg)
}

// jsonrpc2InvalidParamsWithData attaches a structured data payload to an
// invalid-params error, e.g. the offending name or argument (spec §7).
func jsonrpc2InvalidParamsWithData(msg string, data any) error {
	we := jsonrpc2.NewError(jsonrpc2.CodeInvalidParams, msg)
	if raw, err := json.Marshal(data); err == nil {
		we.Data = raw
	}
	return we
}

func jsonrpc2MethodNotFound(msg string) error {
	return jsonrpc2.NewError(jsonrpc2.CodeMethodNotFound, msg)
}

func jsonrpc2RequestBeforeInit(msg string) error {
	return jsonrpc2.NewError(jsonrpc2.CodeRequestBeforeInit, msg)
}

func jsonrpc2UnsupportedVersion(msg string) error {
	return jsonrpc2.NewError(jsonrpc2.CodeUnsupportedVersion, msg)
}

func jsonrpc2UnsupportedMethod(method string) error {
	return jsonrpc2.NewError(CodeUnsupportedMethod, "peer does not support method: "+method)
}

// ResourceNotFoundError builds the error a ResourceHandler returns when it
// cannot find the requested resource (spec §4.4 "resources/read").
func ResourceNotFoundError(uri string) error {
	return jsonrpc2.NewError(CodeResourceNotFound, "resource not found: "+uri)
}
