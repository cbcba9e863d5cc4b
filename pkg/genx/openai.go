package genx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

var _ Generator = (*OpenAIGenerator)(nil)

const (
	oaiFinishReasonLength        string = "length"
	oaiFinishReasonContentFilter string = "content_filter"
)

// OpenAISchemaFormatter formats a JSON schema for OpenAI strict function calling.
type OpenAISchemaFormatter func(m *jsonschema.Schema) *jsonschema.Schema

// OpenAIGenerator implements Generator using the OpenAI chat completions API
// or any compatible endpoint.
type OpenAIGenerator struct {
	Client *openai.Client `json:"-"`

	Model string `json:"model"`

	Params *ModelParams `json:"params,omitzero"`

	// UseSystemRole sends system messages with the system role instead of
	// the developer role.
	UseSystemRole bool `json:"use_system_role,omitzero"`

	// Strict enables strict function calling. Schemas are rewritten with
	// SchemaFormatter, or FormatOpenAISchema when it is nil.
	Strict bool `json:"strict,omitzero"`

	ExtraFields map[string]any `json:"extra_fields,omitzero"`

	SchemaFormatter OpenAISchemaFormatter `json:"-"`

	Logger *slog.Logger `json:"-"`
}

// Generate sends p to the model with tool_choice "auto". A tool call is
// returned as an encoded [ToolCall]; plain content is returned as is.
func (g *OpenAIGenerator) Generate(ctx context.Context, p *Prompt) (string, error) {
	params := g.chatCompletion(p)
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("genx: openai %s: %w", g.Model, err)
	}
	usage := oaiConvUsage(&resp.Usage)
	g.logger().Debug("genx: openai completion", "model", g.Model, "prompt_tokens", usage.PromptTokenCount, "generated_tokens", usage.GeneratedTokenCount)

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", Blocked(usage, choice.Message.Refusal)
	}
	if choice.FinishReason == oaiFinishReasonContentFilter {
		return "", Blocked(usage, "content filter")
	}
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		call, err := NewToolCall(tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return "", err
		}
		return call.Encode()
	}
	if choice.FinishReason == oaiFinishReasonLength && choice.Message.Content == "" {
		return "", ErrTruncated
	}
	return choice.Message.Content, nil
}

func (g *OpenAIGenerator) chatCompletion(p *Prompt) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: g.convMessages(p.Messages),
		Model:    g.Model,
	}
	mp := g.Params
	params.MaxCompletionTokens = param.NewOpt(int64(mp.maxTokens()))
	if mp != nil {
		if mp.FrequencyPenalty > 0 {
			params.FrequencyPenalty = param.NewOpt(float64(mp.FrequencyPenalty))
		}
		if mp.N > 0 {
			params.N = param.NewOpt(int64(mp.N))
		}
		if mp.Temperature > 0 {
			params.Temperature = param.NewOpt(float64(mp.Temperature))
		}
		if mp.TopP > 0 {
			params.TopP = param.NewOpt(float64(mp.TopP))
		}
		if mp.PresencePenalty > 0 {
			params.PresencePenalty = param.NewOpt(float64(mp.PresencePenalty))
		}
	}
	for _, t := range p.Tools {
		fn := openai.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: param.NewOpt(t.Function.Description),
			Parameters:  g.convSchemaForFunc(t.Function.Parameters),
		}
		if g.Strict {
			fn.Strict = param.NewOpt(true)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fn})
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt("auto"),
		}
	}
	if len(g.ExtraFields) > 0 {
		params.SetExtraFields(g.ExtraFields)
	}
	return params
}

func (g *OpenAIGenerator) convMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			if g.UseSystemRole {
				out = append(out, openai.ChatCompletionMessageParamUnion{
					OfSystem: &openai.ChatCompletionSystemMessageParam{
						Content: openai.ChatCompletionSystemMessageParamContentUnion{
							OfString: param.NewOpt(msg.Content),
						},
					},
				})
			} else {
				out = append(out, openai.ChatCompletionMessageParamUnion{
					OfDeveloper: &openai.ChatCompletionDeveloperMessageParam{
						Content: openai.ChatCompletionDeveloperMessageParamContentUnion{
							OfString: param.NewOpt(msg.Content),
						},
					},
				})
			}
		case RoleUser:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: param.NewOpt(msg.Content),
					},
				},
			})
		default:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: param.NewOpt(msg.Content),
					},
				},
			})
		}
	}
	return out
}

func (g *OpenAIGenerator) convSchemaForFunc(s *jsonschema.Schema) openai.FunctionParameters {
	if s == nil {
		return openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
	}
	s = s.CloneSchemas()
	if g.Strict {
		if g.SchemaFormatter != nil {
			s = g.SchemaFormatter(s)
		} else {
			s = FormatOpenAISchema(s)
		}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m openai.FunctionParameters
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// FormatOpenAISchema formats a schema for OpenAI structured outputs.
//
// OpenAI strict mode requires:
//   - All objects must have additionalProperties: false
//   - All properties must be listed in required
//
// Optional properties become nullable instead.
func FormatOpenAISchema(m *jsonschema.Schema) *jsonschema.Schema {
	if m == nil {
		return nil
	}
	if m.Type != "" && len(m.Types) > 0 {
		m.Types = append(m.Types, m.Type)
		m.Type = ""
	}
	typ := m.Type
	if typ == "" {
		for _, t := range m.Types {
			if t != "null" && t != "" {
				typ = t
				break
			}
		}
	}

	switch typ {
	case "array":
		m.Items = FormatOpenAISchema(m.Items)
	case "object":
		m.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}

		requires := make(map[string]struct{})
		for _, v := range m.Required {
			requires[v] = struct{}{}
		}
		for k, v := range m.Properties {
			if _, ok := requires[k]; !ok {
				requires[k] = struct{}{}
				if v.Type != "" {
					v.Types = []string{v.Type}
					v.Type = ""
				}
				if !slices.Contains(v.Types, "null") {
					v.Types = append(v.Types, "null")
				}
				v.Default = nil
			}
			m.Properties[k] = FormatOpenAISchema(v)
		}
		m.Required = slices.Sorted(maps.Keys(requires))
	}
	return m
}

func (g *OpenAIGenerator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func oaiConvUsage(usage *openai.CompletionUsage) Usage {
	return Usage{
		PromptTokenCount:        usage.PromptTokens,
		CachedContentTokenCount: usage.PromptTokensDetails.CachedTokens,
		GeneratedTokenCount:     usage.CompletionTokens,
	}
}
