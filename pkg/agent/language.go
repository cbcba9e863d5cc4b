package agent

import (
	"encoding/json"
	"strings"

	"github.com/finsense/finsense/pkg/action"
	"github.com/finsense/finsense/pkg/environment"
	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/memory"
)

// TerminateTool is the name of the action a non-tool reply is mapped to.
const TerminateTool = "terminate"

// DefaultRules are the behavioral instructions appended to the goals.
const DefaultRules = "When updating a transaction, assume the most recent match is correct unless otherwise specified. " +
	"Do not prompt the user for more details unless multiple very similar matches are found. " +
	"Use available tools to complete the task whenever possible."

// Invocation is a parsed model reply: the tool to run and its arguments.
type Invocation struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Language converts agent state to prompts and model replies to invocations.
type Language interface {
	ConstructPrompt(actions []*action.Action, env *environment.Environment, goals []Goal, mem *memory.Memory) *genx.Prompt
	ParseResponse(raw string) Invocation
}

// FunctionCallingLanguage targets models with native function calling.
type FunctionCallingLanguage struct {
	// Rules follow the goals in the system message. Empty means DefaultRules.
	Rules string
}

var _ Language = FunctionCallingLanguage{}

// ConstructPrompt builds one system message from the goals and rules, one
// message per memory entry and one function declaration per action.
// Environment entries are presented to the model as assistant messages.
func (l FunctionCallingLanguage) ConstructPrompt(actions []*action.Action, _ *environment.Environment, goals []Goal, mem *memory.Memory) *genx.Prompt {
	rules := l.Rules
	if rules == "" {
		rules = DefaultRules
	}
	descs := make([]string, 0, len(goals))
	for _, g := range goals {
		descs = append(descs, g.String())
	}

	p := &genx.Prompt{
		Messages: []genx.Message{{
			Role:    genx.RoleSystem,
			Content: strings.Join(descs, "\n") + "\n\n" + rules,
		}},
	}
	if mem != nil {
		for _, e := range mem.All() {
			p.Messages = append(p.Messages, genx.Message{
				Role:    promptRole(e.Role),
				Content: e.Content.String(),
			})
		}
	}
	for _, a := range actions {
		p.Tools = append(p.Tools, genx.FunctionTool(a.Name, a.Description, a.Parameters))
	}
	return p
}

func promptRole(r memory.Role) genx.Role {
	switch r {
	case memory.RoleUser:
		return genx.RoleUser
	case memory.RoleSystem:
		return genx.RoleSystem
	default:
		return genx.RoleAssistant
	}
}

// ParseResponse decodes raw as {"tool": string, "args": object}. Anything
// else, including malformed JSON, becomes a terminate invocation carrying raw
// as its message.
func (FunctionCallingLanguage) ParseResponse(raw string) Invocation {
	var v struct {
		Tool *string        `json:"tool"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil || v.Tool == nil || *v.Tool == "" {
		return terminateWith(raw)
	}
	inv := Invocation{Tool: *v.Tool, Args: map[string]any{}}
	if len(v.Args) > 0 && string(v.Args) != "null" {
		if err := json.Unmarshal(v.Args, &inv.Args); err != nil {
			return terminateWith(raw)
		}
	}
	return inv
}

func terminateWith(msg string) Invocation {
	return Invocation{Tool: TerminateTool, Args: map[string]any{"message": msg}}
}
