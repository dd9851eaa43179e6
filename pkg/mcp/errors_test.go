package mcp

import (
	"testing"

	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

func TestMCPErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int64
	}{
		{jsonrpc2InvalidParams("x"), jsonrpc2.CodeInvalidParams},
		{jsonrpc2MethodNotFound("x"), jsonrpc2.CodeMethodNotFound},
		{jsonrpc2RequestBeforeInit("x"), jsonrpc2.CodeRequestBeforeInit},
		{jsonrpc2UnsupportedVersion("x"), jsonrpc2.CodeUnsupportedVersion},
		{jsonrpc2UnsupportedMethod("tools/call"), CodeUnsupportedMethod},
		{ResourceNotFoundError("mem://x"), CodeResourceNotFound},
	}
	for _, c := range cases {
		we, ok := c.err.(*jsonrpc2.WireError)
		if !ok {
			t.Fatalf("%v is %T, want *jsonrpc2.WireError", c.err, c.err)
		}
		if we.Code != c.code {
			t.Errorf("code = %d, want %d", we.Code, c.code)
		}
	}
}

func TestResourceAndJSONRPCErrorCodesDoNotCollide(t *testing.T) {
	if CodeResourceNotFound == jsonrpc2.CodeRequestBeforeInit {
		t.Fatal("CodeResourceNotFound must not collide with jsonrpc2's reserved -32002")
	}
}
