package genx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
)

const inspectPromptTplContent = `{{- range .Messages }}
### {{ .Role }}
{{ trim .Content "\n" }}
{{ end }}
{{- if .Tools }}
## Tools
{{- range .Tools }}
### {{ .Function.Name }}
{{ .Function.Description }}
{{- end }}
{{ end -}}
`

var inspectPromptTpl = template.Must(
	template.New("inspectPrompt").
		Funcs(template.FuncMap{"trim": strings.Trim}).
		Parse(inspectPromptTplContent))

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string { return string(r) }

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FunctionDeclaration describes a callable function.
type FunctionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// ToolDeclaration is a tool in OpenAI function format.
type ToolDeclaration struct {
	Type     string              `json:"type"`
	Function FunctionDeclaration `json:"function"`
}

// FunctionTool returns a function tool declaration.
func FunctionTool(name, description string, params *jsonschema.Schema) ToolDeclaration {
	return ToolDeclaration{
		Type: "function",
		Function: FunctionDeclaration{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

// Prompt is everything sent to a model for one call.
type Prompt struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDeclaration `json:"tools,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// InspectPrompt renders p as markdown for debugging.
func InspectPrompt(p *Prompt) (string, error) {
	var sb strings.Builder
	if err := inspectPromptTpl.Execute(&sb, p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type Generator interface {
	Generate(ctx context.Context, p *Prompt) (string, error)
}

// GeneratorFunc adapts a function to [Generator].
type GeneratorFunc func(ctx context.Context, p *Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, p *Prompt) (string, error) {
	return f(ctx, p)
}

// ToolCall is a model's choice of tool, as returned by generators.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// NewToolCall decodes the JSON arguments a provider returned for name.
// Malformed argument JSON is repaired when possible.
func NewToolCall(name, arguments string) (ToolCall, error) {
	call := ToolCall{Tool: name, Args: map[string]any{}}
	if strings.TrimSpace(arguments) == "" {
		return call, nil
	}
	if err := unmarshalJSON([]byte(arguments), &call.Args); err != nil {
		return ToolCall{}, fmt.Errorf("genx: tool %s arguments: %w", name, err)
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return call, nil
}

// Encode returns the JSON form {"tool": ..., "args": ...}.
func (c ToolCall) Encode() (string, error) {
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("genx: encode tool call: %w", err)
	}
	return string(b), nil
}

type ModelParams struct {
	MaxTokens        int     `json:"max_tokens,omitzero"`
	FrequencyPenalty float32 `json:"frequency_penalty,omitzero"`
	N                int     `json:"n,omitzero"`
	Temperature      float32 `json:"temperature,omitzero"`
	TopP             float32 `json:"top_p,omitzero"`
	PresencePenalty  float32 `json:"presence_penalty,omitzero"`
	TopK             float32 `json:"top_k,omitzero"`
}

// DefaultMaxTokens caps a completion when no params are configured.
const DefaultMaxTokens = 1024

func (mp *ModelParams) maxTokens() int {
	if mp == nil || mp.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return mp.MaxTokens
}

type Usage struct {
	// Number of tokens in the prompt, including cached content.
	PromptTokenCount int64

	// Number of tokens in the cached part of the prompt.
	CachedContentTokenCount int64

	// Number of tokens generated.
	GeneratedTokenCount int64
}

func (u Usage) String() string {
	b, _ := yaml.Marshal(map[string]map[string]any{
		"Usage": {
			"Prompt":    u.PromptTokenCount,
			"Cached":    u.CachedContentTokenCount,
			"Generated": u.GeneratedTokenCount,
		},
	})
	return string(b)
}
