package tool

import (
	"context"

	"github.com/finsense/finsense/pkg/memory"
)

// Call is the context a tool is invoked with. It is one of the two reserved
// parameters of an [InvokeFunc] and is never part of a tool's schema.
type Call struct {
	// Tool is the name of the tool being invoked.
	Tool string

	// RunID identifies the agent run that selected the tool.
	RunID string

	// Memory is the run's interaction log. It may be nil when a tool is
	// invoked outside an agent run.
	Memory *memory.Memory
}

type callKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the Call stored in ctx by [NewContext].
func CallFrom(ctx context.Context) (*Call, bool) {
	c, ok := ctx.Value(callKey{}).(*Call)
	return c, ok && c != nil
}
