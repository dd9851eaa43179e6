package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mcpcore/mcp-runtime/pkg/mcp"
)

// registerDemoTools installs a couple of illustrative tools onto server: an
// "echo" tool exercising plain validation/content, and a "time" tool with no
// input, showing a zero-argument handler. log receives one record per echo
// call, demonstrating the notifications/message bridge.
func registerDemoTools(server *mcp.Server, log *slog.Logger) {
	echo, err := mcp.NewServerTool(
		"echo",
		"Echoes the given message back as text content.",
		&jsonschema.Schema{
			Type:     "object",
			Required: []string{"message"},
			Properties: map[string]*jsonschema.Schema{
				"message": {Type: "string"},
			},
		},
		func(_ context.Context, _ *mcp.ServerSession, args map[string]any) (*mcp.CallToolResult, error) {
			msg, _ := args["message"].(string)
			log.Info("echo called", "message", msg)
			return &mcp.CallToolResult{Content: []*mcp.Content{mcp.NewTextContent(msg)}}, nil
		},
	)
	if err != nil {
		panic(err)
	}

	now, err := mcp.NewServerTool(
		"time",
		"Returns the server's current UTC time in RFC3339 form.",
		&jsonschema.Schema{Type: "object"},
		func(_ context.Context, _ *mcp.ServerSession, _ map[string]any) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []*mcp.Content{mcp.NewTextContent(time.Now().UTC().Format(time.RFC3339))},
			}, nil
		},
	)
	if err != nil {
		panic(err)
	}

	server.AddTools(echo, now)
}

// registerDemoResources installs a single synthetic resource, grounded in
// the README one often finds at the root of a small project.
func registerDemoResources(server *mcp.Server) {
	readme := &mcp.ServerResource{
		Resource: &mcp.Resource{
			URI:         "mem://readme",
			Name:        "readme",
			Description: "A short description of this demo server.",
			MIMEType:    "text/plain",
		},
		Handler: func(_ context.Context, _ *mcp.ServerSession, uri string) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					mcp.NewTextResourceContents(uri, "text/plain", fmt.Sprintf("mcpd %s demo server", version)),
				},
			}, nil
		},
	}
	server.AddResources(readme)
}
