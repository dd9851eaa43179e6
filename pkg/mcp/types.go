package mcp

import "encoding/json"

// Meta is the "_meta" envelope MCP attaches to params and results (spec §3
// "Message"). Only ProgressToken is encoded on the wire: Data is excluded
// from JSON, so free-form meta entries are neither sent nor decoded.
type Meta struct {
	Data          map[string]any `json:"-"`
	ProgressToken any            `json:"progressToken,omitempty"`
}

// Implementation identifies a client or server peer (name/version/title).
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

// ClientCapabilities is the client-declared capability set from initialize.
type ClientCapabilities struct {
	Roots struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"roots,omitempty"`
	Sampling map[string]any `json:"sampling,omitempty"`
}

// ServerCapabilities is the server-declared capability set, shaped per the
// negotiated version (spec §4.4 "Capabilities shape").
type ServerCapabilities struct {
	Logging   map[string]any      `json:"logging,omitempty"`
	Tools     *ListChangedCapable `json:"tools,omitempty"`
	Prompts   *ListChangedCapable `json:"prompts,omitempty"`
	Resources *ResourceCapability `json:"resources,omitempty"`
}

// ListChangedCapable is shared by the tools and prompts capability entries.
type ListChangedCapable struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourceCapability additionally advertises subscribe support.
type ResourceCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeParams is the payload of the "initialize" request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the payload of the "initialize" response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// Tool describes one entry in the tool catalog (spec §3 "Tool... entry").
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallToolParams is the payload of "tools/call".
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the payload of a "tools/call" response. IsError true
// means an application-level failure, not an RPC error (spec §4.4, §7).
type CallToolResult struct {
	Content           []*Content `json:"content"`
	StructuredContent any        `json:"structuredContent,omitempty"`
	IsError           bool       `json:"isError"`
}

// ListToolsParams / ListToolsResult implement cursor-based pagination
// (spec §4.4 "resources/list (with optional cursor)", mirrored for tools).
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type ListToolsResult struct {
	Tools      []*Tool `json:"tools"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Prompt describes one entry in the prompt catalog.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type ListPromptsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type ListPromptsResult struct {
	Prompts    []*Prompt `json:"prompts"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

type PromptMessage struct {
	Role    string   `json:"role"`
	Content *Content `json:"content"`
}

type GetPromptResult struct {
	Description string           `json:"description,omitempty"`
	Messages    []*PromptMessage `json:"messages"`
}

// Resource describes one entry in the resource catalog.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

type ListResourcesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type ListResourcesResult struct {
	Resources  []*Resource `json:"resources"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

type ReadResourceParams struct {
	URI string `json:"uri"`
}

type ReadResourceResult struct {
	Contents []*ResourceContents `json:"contents"`
}

type SubscribeParams struct {
	URI string `json:"uri"`
}

type UnsubscribeParams struct {
	URI string `json:"uri"`
}

// SetLevelParams is the payload of "logging/setLevel".
type SetLevelParams struct {
	Level LoggingLevel `json:"level"`
}

// emptyResult is used for methods that return "{}" (ping, subscribe, ...).
type emptyResult struct{}
