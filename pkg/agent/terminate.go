package agent

import (
	"context"

	"github.com/finsense/finsense/pkg/tool"
)

type terminateArgs struct {
	Message string `json:"message" jsonschema:"Final message to the user"`
}

// RegisterTerminate registers the terminal terminate tool in reg under tags.
// Its result is {"message": <message>}.
func RegisterTerminate(reg *tool.Registry, tags ...string) (*tool.Tool, error) {
	return tool.Register(reg, terminate,
		tool.WithName(TerminateTool),
		tool.WithDescription("Terminates the session and prints the message to the user."),
		tool.Terminal(),
		tool.WithTags(tags...),
	)
}

func terminate(_ context.Context, _ *tool.Call, args terminateArgs) (any, error) {
	return map[string]any{"message": args.Message}, nil
}
