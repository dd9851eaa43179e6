package mcp

import "context"

// PromptHandler handles a prompts/get invocation, substituting the given
// named arguments into the prompt's template (spec §4.4: "templated prompt
// substitution for get").
type PromptHandler func(ctx context.Context, ss *ServerSession, args map[string]string) (*GetPromptResult, error)

// ServerPrompt binds a Prompt definition to its handler.
type ServerPrompt struct {
	Prompt  *Prompt
	Handler PromptHandler
}

func (sp *ServerPrompt) validate(args map[string]string) error {
	required := make(map[string]bool)
	for _, a := range sp.Prompt.Arguments {
		if a.Required {
			required[a.Name] = true
		}
	}
	for name := range required {
		if _, ok := args[name]; !ok {
			return jsonrpc2InvalidParams("missing required prompt argument: " + name)
		}
	}
	return nil
}

type promptRegistry struct {
	set *featureSet[*ServerPrompt]
}

func newPromptRegistry() *promptRegistry {
	return &promptRegistry{set: newFeatureSet(func(p *ServerPrompt) string { return p.Prompt.Name })}
}
