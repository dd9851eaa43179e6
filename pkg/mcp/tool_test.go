package mcp

import (
	"context"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

func TestNewServerToolDefaultsToObjectSchema(t *testing.T) {
	tool, err := NewServerTool("noop", "", nil,
		func(_ context.Context, _ *ServerSession, _ map[string]any) (*CallToolResult, error) {
			return &CallToolResult{}, nil
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if tool.Tool.Name != "noop" {
		t.Errorf("Name = %q", tool.Tool.Name)
	}
	if err := tool.validate(map[string]any{"anything": 1}); err != nil {
		t.Errorf("an unconstrained schema should accept any object, got %v", err)
	}
}

func TestServerToolValidateRejectsMissingRequired(t *testing.T) {
	tool, err := NewServerTool("echo", "", &jsonschema.Schema{
		Type:     "object",
		Required: []string{"message"},
		Properties: map[string]*jsonschema.Schema{
			"message": {Type: "string"},
		},
	}, func(_ context.Context, _ *ServerSession, _ map[string]any) (*CallToolResult, error) {
		return &CallToolResult{}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tool.validate(map[string]any{}); err == nil {
		t.Fatal("expected a validation error for a missing required property")
	}
	if err := tool.validate(map[string]any{"message": "hi"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
