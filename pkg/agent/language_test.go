package agent_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/finsense/finsense/pkg/action"
	"github.com/finsense/finsense/pkg/agent"
	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/memory"
)

func TestConstructPrompt(t *testing.T) {
	goals := []agent.Goal{
		{Priority: 1, Name: "Track spending", Description: "Structure transactions."},
		{Priority: 2, Name: "Apply 50/30/20", Description: "Compare against the rule."},
	}
	env, err := memory.EnvironmentJSON(map[string]any{"tool_executed": true})
	if err != nil {
		t.Fatal(err)
	}
	mem := memory.New(
		memory.UserText("hi"),
		memory.AssistantText(`{"tool":"noop"}`),
		env,
		memory.SystemText("note"),
	)
	actions := []*action.Action{action.New("noop", "Does nothing.", nil, false, nil)}

	p := agent.FunctionCallingLanguage{Rules: "Be brief."}.ConstructPrompt(actions, nil, goals, mem)

	wantSystem := "Track spending: Structure transactions.\nApply 50/30/20: Compare against the rule.\n\nBe brief."
	if p.Messages[0].Role != genx.RoleSystem || p.Messages[0].Content != wantSystem {
		t.Errorf("system message = %+v", p.Messages[0])
	}
	wantRoles := []genx.Role{genx.RoleSystem, genx.RoleUser, genx.RoleAssistant, genx.RoleAssistant, genx.RoleSystem}
	if len(p.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(p.Messages), len(wantRoles))
	}
	for i, r := range wantRoles {
		if p.Messages[i].Role != r {
			t.Errorf("message %d role = %s, want %s", i, p.Messages[i].Role, r)
		}
	}
	if p.Messages[3].Content != `{"tool_executed":true}` {
		t.Errorf("environment content = %q", p.Messages[3].Content)
	}
	if len(p.Tools) != 1 || p.Tools[0].Type != "function" || p.Tools[0].Function.Name != "noop" {
		t.Errorf("tools = %+v", p.Tools)
	}
}

func TestConstructPromptDefaultRules(t *testing.T) {
	p := agent.FunctionCallingLanguage{}.ConstructPrompt(nil, nil, nil, memory.New())
	if p.Messages[0].Content != "\n\n"+agent.DefaultRules {
		t.Errorf("system message = %q", p.Messages[0].Content)
	}
	if len(p.Tools) != 0 {
		t.Errorf("tools = %v", p.Tools)
	}
}

func TestParseResponse(t *testing.T) {
	lang := agent.FunctionCallingLanguage{}
	tests := []struct {
		name     string
		raw      string
		wantTool string
		wantArgs int
	}{
		{"tool call", `{"tool":"add","args":{"a":1,"b":2}}`, "add", 2},
		{"missing args", `{"tool":"summarize_income"}`, "summarize_income", 0},
		{"null args", `{"tool":"summarize_income","args":null}`, "summarize_income", 0},
		{"plain text", "hello world", agent.TerminateTool, 1},
		{"not an object", `[1,2]`, agent.TerminateTool, 1},
		{"missing tool", `{"args":{}}`, agent.TerminateTool, 1},
		{"non-string tool", `{"tool":5}`, agent.TerminateTool, 1},
		{"args not an object", `{"tool":"add","args":[1]}`, agent.TerminateTool, 1},
		{"trailing comma", `{"tool":"add",}`, agent.TerminateTool, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := lang.ParseResponse(tt.raw)
			if inv.Tool != tt.wantTool {
				t.Fatalf("tool = %q, want %q", inv.Tool, tt.wantTool)
			}
			if len(inv.Args) != tt.wantArgs {
				t.Fatalf("args = %v", inv.Args)
			}
			if inv.Tool == agent.TerminateTool && inv.Args["message"] != tt.raw {
				t.Errorf("message = %v, want raw reply", inv.Args["message"])
			}
		})
	}
}

func TestLoadGoals(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yaml")
	if err := os.WriteFile(list, []byte(`
- priority: 1
  name: Track
  description: Track spending.
- priority: 2
  name: Save
  description: Save money.
`), 0o644); err != nil {
		t.Fatal(err)
	}
	goals, err := agent.LoadGoals(list)
	if err != nil {
		t.Fatal(err)
	}
	if len(goals) != 2 || goals[1].Name != "Save" || goals[1].Priority != 2 {
		t.Errorf("goals = %+v", goals)
	}

	doc := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(doc, []byte("goals:\n  - priority: 1\n    name: Track\n    description: Track spending.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	goals, err = agent.LoadGoals(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(goals) != 1 || goals[0].String() != "Track: Track spending." {
		t.Errorf("goals = %+v", goals)
	}

	if _, err := agent.LoadGoals(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
