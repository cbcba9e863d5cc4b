package genx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator implements Generator using Google Gemini API.
type GeminiGenerator struct {
	Client *genai.Client `json:"-"`

	Params *ModelParams `json:"params,omitzero"`

	// Model should not start with "models/"
	Model string `json:"model"`

	Logger *slog.Logger `json:"-"`
}

// Generate sends p to Gemini. A function call part is returned as an encoded
// [ToolCall]; otherwise the text parts are concatenated.
func (g *GeminiGenerator) Generate(ctx context.Context, p *Prompt) (string, error) {
	cfg, contents, err := g.convPrompt(p)
	if err != nil {
		return "", err
	}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		var e *apierror.APIError
		if errors.As(err, &e) {
			err = e.Unwrap()
		}
		return "", err
	}
	usage := geminiConvUsage(resp.UsageMetadata)
	g.logger().Debug("genx: gemini completion", "model", g.Model, "prompt_tokens", usage.PromptTokenCount, "generated_tokens", usage.GeneratedTokenCount)

	if len(resp.Candidates) == 0 {
		return "", ErrNoChoices
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonSafety {
		var cats []string
		for _, sr := range c.SafetyRatings {
			if sr.Blocked {
				cats = append(cats, string(sr.Category))
			}
		}
		return "", Blocked(usage, "blocked by "+strings.Join(cats, ", "))
	}
	if c.Content == nil {
		return "", fmt.Errorf("genx: gemini: empty candidate, finish reason %s", c.FinishReason)
	}

	var sb strings.Builder
	for _, part := range c.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			call := ToolCall{Tool: part.FunctionCall.Name, Args: part.FunctionCall.Args}
			return call.Encode()
		case part.Text != "":
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 && c.FinishReason == genai.FinishReasonMaxTokens {
		return "", ErrTruncated
	}
	return sb.String(), nil
}

func (g *GeminiGenerator) convPrompt(p *Prompt) (*genai.GenerateContentConfig, []*genai.Content, error) {
	cfg := genai.GenerateContentConfig{
		SafetySettings: []*genai.SafetySetting{
			{
				Category:  genai.HarmCategoryHateSpeech,
				Threshold: genai.HarmBlockThresholdOff,
			},
			{
				Category:  genai.HarmCategoryHarassment,
				Threshold: genai.HarmBlockThresholdOff,
			},
			{
				Category:  genai.HarmCategoryDangerousContent,
				Threshold: genai.HarmBlockThresholdOff,
			},
		},
	}
	mp := g.Params
	cfg.MaxOutputTokens = int32(mp.maxTokens())
	if mp != nil {
		if mp.Temperature > 0 {
			cfg.Temperature = &mp.Temperature
		}
		if mp.TopP > 0 {
			cfg.TopP = &mp.TopP
		}
		if mp.TopK > 0 {
			cfg.TopK = &mp.TopK
		}
	}

	var (
		system   []*genai.Part
		contents []*genai.Content
		last     *genai.Content
	)
	for _, msg := range p.Messages {
		if msg.Role == RoleSystem {
			system = append(system, genai.NewPartFromText(msg.Content))
			continue
		}
		role := "model"
		if msg.Role == RoleUser {
			role = "user"
		}
		part := genai.NewPartFromText(msg.Content)
		if last != nil && last.Role == role {
			last.Parts = append(last.Parts, part)
			continue
		}
		last = &genai.Content{Role: role, Parts: []*genai.Part{part}}
		contents = append(contents, last)
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("genx: gemini: no contents")
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	if len(p.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(p.Tools))
		for _, t := range p.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  geminiConvSchema(t.Function.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &cfg, contents, nil
}

func geminiConvSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       geminiConvSchema(schema.Items),
		Required:    schema.Required,
	}
	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = geminiConvSchema(prop)
		}
	}

	typ := schema.Type
	if typ == "" && len(schema.Types) > 0 {
		// Gemini takes a single type; multi-type schemas collapse to the
		// first non-null one.
		for _, t := range schema.Types {
			if t != "null" {
				typ = t
				break
			}
		}
	}
	switch typ {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	if gs.Type == genai.TypeArray && gs.Items == nil {
		gs.Items = &genai.Schema{Type: genai.TypeString}
	}
	return &gs
}

func (g *GeminiGenerator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func geminiConvUsage(usage *genai.GenerateContentResponseUsageMetadata) Usage {
	if usage == nil {
		return Usage{}
	}
	return Usage{
		PromptTokenCount:        int64(usage.PromptTokenCount),
		CachedContentTokenCount: int64(usage.CachedContentTokenCount),
		GeneratedTokenCount:     int64(usage.CandidatesTokenCount),
	}
}
