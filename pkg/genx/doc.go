// Package genx is the model-facing side of the agent: the provider-neutral
// prompt handed to a language model and the generators that call one.
//
// # Core Types
//
// Prompt is the aggregate sent to a model for a single call:
//   - Messages: ordered chat messages (system, user, assistant)
//   - Tools: function declarations the model may call
//   - Metadata: free-form values for generators and logging
//
// Generator turns a Prompt into raw text:
//
//	type Generator interface {
//	    Generate(ctx context.Context, p *Prompt) (string, error)
//	}
//
// When the model selects a tool, a generator returns the call encoded as a
// [ToolCall] JSON object, {"tool": "<name>", "args": {...}}. Otherwise it
// returns the model's text unchanged.
//
// # Package Structure
//
//   - genx/generators: name-based multiplexer over generators
//
//   - genx/modelloader: loads model config files and registers generators
//
// OpenAIGenerator and GeminiGenerator live in this package.
package genx
