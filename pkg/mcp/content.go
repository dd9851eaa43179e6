package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Content is the wire format for a single piece of tool/prompt content: a
// TextContent, ImageContent, AudioContent, or EmbeddedResource, distinguished
// by Type. Use the New*Content constructors rather than building one by
// hand, so Type always agrees with the populated field.
type Content struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	MIMEType string            `json:"mimeType,omitempty"`
	Data     []byte            `json:"data,omitempty"`
	Resource *ResourceContents `json:"resource,omitempty"`
}

func (c *Content) UnmarshalJSON(data []byte) error {
	type wireContent Content
	var c2 wireContent
	if err := json.Unmarshal(data, &c2); err != nil {
		return err
	}
	switch c2.Type {
	case "text", "image", "audio", "resource":
	default:
		return fmt.Errorf("mcp: unrecognized content type %q", c2.Type)
	}
	*c = Content(c2)
	return nil
}

// NewTextContent creates text Content.
func NewTextContent(text string) *Content { return &Content{Type: "text", Text: text} }

// NewImageContent creates image Content.
func NewImageContent(data []byte, mimeType string) *Content {
	return &Content{Type: "image", Data: data, MIMEType: mimeType}
}

// NewAudioContent creates audio Content. Servers must not emit this to a
// client negotiated at a version where audio is unsupported (spec §4.4).
func NewAudioContent(data []byte, mimeType string) *Content {
	return &Content{Type: "audio", Data: data, MIMEType: mimeType}
}

// NewEmbeddedResource wraps a ResourceContents as Content.
func NewEmbeddedResource(r *ResourceContents) *Content {
	return &Content{Type: "resource", Resource: r}
}

// ResourceContents is the body of a resources/read result entry: either text
// or a binary blob, never both (spec §4.4 "resources/read").
type ResourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     []byte `json:"blob,omitempty"`
	isBlob   bool
}

func (r ResourceContents) MarshalJSON() ([]byte, error) {
	if r.URI == "" {
		return nil, errors.New("mcp: ResourceContents missing URI")
	}
	if r.isBlob {
		return json.Marshal(struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType,omitempty"`
			Blob     []byte `json:"blob"`
		}{r.URI, r.MIMEType, r.Blob})
	}
	return json.Marshal(struct {
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType,omitempty"`
		Text     string `json:"text"`
	}{r.URI, r.MIMEType, r.Text})
}

// NewTextResourceContents returns text ResourceContents.
func NewTextResourceContents(uri, mimeType, text string) *ResourceContents {
	return &ResourceContents{URI: uri, MIMEType: mimeType, Text: text}
}

// NewBlobResourceContents returns binary ResourceContents.
func NewBlobResourceContents(uri, mimeType string, blob []byte) *ResourceContents {
	if blob == nil {
		blob = []byte{}
	}
	return &ResourceContents{URI: uri, MIMEType: mimeType, Blob: blob, isBlob: true}
}
