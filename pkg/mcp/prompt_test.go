package mcp

import (
	"context"
	"testing"
)

func TestServerPromptValidateRequiredArguments(t *testing.T) {
	sp := &ServerPrompt{
		Prompt: &Prompt{
			Name: "greet",
			Arguments: []PromptArgument{
				{Name: "name", Required: true},
				{Name: "tone", Required: false},
			},
		},
		Handler: func(_ context.Context, _ *ServerSession, args map[string]string) (*GetPromptResult, error) {
			return &GetPromptResult{Messages: []*PromptMessage{
				{Role: "user", Content: NewTextContent("hi " + args["name"])},
			}}, nil
		},
	}

	if err := sp.validate(map[string]string{}); err == nil {
		t.Fatal("expected an error for a missing required argument")
	}
	if err := sp.validate(map[string]string{"name": "ada"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPromptsListAndGetEndToEnd(t *testing.T) {
	server := NewServer(Implementation{Name: "s", Version: "1"}, nil)
	server.AddPrompts(&ServerPrompt{
		Prompt: &Prompt{
			Name:      "greet",
			Arguments: []PromptArgument{{Name: "name", Required: true}},
		},
		Handler: func(_ context.Context, _ *ServerSession, args map[string]string) (*GetPromptResult, error) {
			return &GetPromptResult{Messages: []*PromptMessage{
				{Role: "user", Content: NewTextContent("hi " + args["name"])},
			}}, nil
		},
	})
	cs := connectTestPair(t, server)

	listed, err := cs.ListPrompts(context.Background(), ListPromptsParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(listed.Prompts) != 1 || listed.Prompts[0].Name != "greet" {
		t.Fatalf("Prompts = %+v", listed.Prompts)
	}

	res, err := cs.GetPrompt(context.Background(), "greet", map[string]string{"name": "ada"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Content.Text != "hi ada" {
		t.Fatalf("Messages = %+v", res.Messages)
	}

	_, err = cs.GetPrompt(context.Background(), "greet", map[string]string{})
	if err == nil {
		t.Fatal("expected an error for a missing required argument")
	}
}
