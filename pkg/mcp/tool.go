package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolHandler handles a tools/call invocation. Arguments have already been
// validated against the tool's input schema by the time the handler runs
// (spec §3 "Tool... entry": "the core invokes with the decoded arguments").
type ToolHandler func(ctx context.Context, ss *ServerSession, args map[string]any) (*CallToolResult, error)

// ServerTool binds a Tool definition to its handler and resolved schema.
type ServerTool struct {
	Tool     *Tool
	Handler  ToolHandler
	resolved *jsonschema.Resolved
}

// NewServerTool builds a ServerTool, resolving schema once up front so that
// every tools/call only pays for validation, not schema compilation.
func NewServerTool(name, description string, schema *jsonschema.Schema, handler ToolHandler) (*ServerTool, error) {
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema for tool %q: %w", name, err)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for tool %q: %w", name, err)
	}
	return &ServerTool{
		Tool: &Tool{
			Name:        name,
			Description: description,
			InputSchema: raw,
		},
		Handler:  handler,
		resolved: resolved,
	}, nil
}

func (st *ServerTool) validate(args map[string]any) error {
	if st.resolved == nil {
		return nil
	}
	if err := st.resolved.Validate(args); err != nil {
		return jsonrpc2InvalidParams(fmt.Sprintf("invalid arguments for tool %q: %v", st.Tool.Name, err))
	}
	return nil
}

type toolRegistry struct {
	set *featureSet[*ServerTool]
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{set: newFeatureSet(func(t *ServerTool) string { return t.Tool.Name })}
}
