package mcp

import (
	"encoding/json"
	"testing"
)

func TestTextContentRoundtrip(t *testing.T) {
	c := NewTextContent("hello")
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var got Content
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "text" || got.Text != "hello" {
		t.Errorf("got %+v", got)
	}
}

func TestContentRejectsUnknownType(t *testing.T) {
	err := json.Unmarshal([]byte(`{"type":"bogus"}`), &Content{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized content type")
	}
}

func TestResourceContentsTextMarshal(t *testing.T) {
	rc := NewTextResourceContents("mem://readme", "text/plain", "hi")
	data, err := json.Marshal(rc)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, hasBlob := m["blob"]; hasBlob {
		t.Error("text resource contents should not marshal a blob field")
	}
	if m["text"] != "hi" {
		t.Errorf("text = %v, want hi", m["text"])
	}
}

func TestResourceContentsBlobMarshal(t *testing.T) {
	rc := NewBlobResourceContents("mem://bin", "application/octet-stream", []byte{1, 2, 3})
	data, err := json.Marshal(rc)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, hasText := m["text"]; hasText {
		t.Error("blob resource contents should not marshal a text field")
	}
	if _, hasBlob := m["blob"]; !hasBlob {
		t.Error("blob resource contents should marshal a blob field")
	}
}

func TestResourceContentsMissingURIFails(t *testing.T) {
	_, err := json.Marshal(ResourceContents{Text: "x"})
	if err == nil {
		t.Fatal("expected an error marshaling ResourceContents with no URI")
	}
}
