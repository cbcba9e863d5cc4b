package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finsense/finsense/pkg/action"
	"github.com/finsense/finsense/pkg/environment"
	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/memory"
	"github.com/finsense/finsense/pkg/tool"
)

const (
	// DefaultMaxIterations is the iteration budget of a run.
	DefaultMaxIterations = 10

	// DefaultModelTimeout bounds one model call.
	DefaultModelTimeout = 120 * time.Second
)

// Config holds the parts of an Agent.
type Config struct {
	Goals       []Goal
	Language    Language
	Actions     *action.Registry
	Environment *environment.Environment
	Generator   genx.Generator
	Logger      *slog.Logger
}

// Agent drives the act/observe loop. An Agent holds no per-run state and may
// run several inputs in sequence; each run owns its Memory.
type Agent struct {
	goals    []Goal
	language Language
	actions  *action.Registry
	env      *environment.Environment
	gen      genx.Generator
	logger   *slog.Logger
}

// New validates cfg and creates an Agent.
func New(cfg Config) (*Agent, error) {
	switch {
	case cfg.Language == nil:
		return nil, ErrNoLanguage
	case cfg.Actions == nil:
		return nil, ErrNoActions
	case cfg.Generator == nil:
		return nil, ErrNoGenerator
	}
	a := &Agent{
		goals:    cfg.Goals,
		language: cfg.Language,
		actions:  cfg.Actions,
		env:      cfg.Environment,
		gen:      cfg.Generator,
		logger:   cfg.Logger,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.env == nil {
		a.env = environment.New(environment.WithLogger(a.logger))
	}
	return a, nil
}

// Goals returns the agent's goals.
func (a *Agent) Goals() []Goal { return a.goals }

// Actions returns the agent's action registry.
func (a *Agent) Actions() *action.Registry { return a.actions }

type runOptions struct {
	maxIterations int
	modelTimeout  time.Duration
	mem           *memory.Memory
	runID         string
}

// RunOption configures a single run.
type RunOption func(*runOptions)

// WithMaxIterations sets the iteration budget. Values below one are ignored.
func WithMaxIterations(n int) RunOption {
	return func(o *runOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithMemory continues an existing session instead of starting empty.
func WithMemory(m *memory.Memory) RunOption {
	return func(o *runOptions) { o.mem = m }
}

// WithModelTimeout bounds each model call. Zero disables the bound.
func WithModelTimeout(d time.Duration) RunOption {
	return func(o *runOptions) { o.modelTimeout = d }
}

// WithRunID sets the run identifier passed to tools and logs.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// Run records input as a user entry and iterates until the run ends. The
// returned memory holds every entry of the run, in order. The error is
// non-nil only when ctx is done; the memory is returned regardless.
func (a *Agent) Run(ctx context.Context, input string, opts ...RunOption) (*memory.Memory, error) {
	o := runOptions{
		maxIterations: DefaultMaxIterations,
		modelTimeout:  DefaultModelTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	mem := o.mem
	if mem == nil {
		mem = memory.New()
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	log := a.logger.With("run", o.runID)
	log.Info("agent: run started", "max_iterations", o.maxIterations, "actions", a.actions.Len())

	mem.Add(memory.UserText(input))
	ctx = tool.NewContext(ctx, &tool.Call{RunID: o.runID, Memory: mem})

	var (
		iterations int
		reason     = "budget exhausted"
	)
	for iterations < o.maxIterations {
		if err := ctx.Err(); err != nil {
			log.Info("agent: run canceled", "iterations", iterations, "error", err)
			return mem, err
		}
		iterations++

		prompt := a.language.ConstructPrompt(a.actions.List(), a.env, a.goals, mem)
		raw, err := a.generate(ctx, prompt, o.modelTimeout)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				log.Info("agent: run canceled", "iterations", iterations, "error", cerr)
				return mem, cerr
			}
			log.Warn("agent: generation failed", "iteration", iterations, "error", err)
			a.record(mem, environment.Failure(fmt.Errorf("agent: generate: %w", err), ""))
			reason = "generation failed"
			break
		}

		inv := a.language.ParseResponse(raw)
		mem.Add(memory.AssistantText(raw))

		act, ok := a.actions.Get(inv.Tool)
		if !ok {
			log.Warn("agent: unknown tool", "tool", inv.Tool)
			a.record(mem, environment.Failure(fmt.Errorf("unknown tool: %s", inv.Tool), ""))
			reason = "unknown tool"
			break
		}

		log.Debug("agent: executing", "iteration", iterations, "tool", act.Name)
		a.record(mem, a.env.Execute(ctx, act, inv.Args))
		if act.Terminal {
			reason = "terminated by " + act.Name
			break
		}
	}

	log.Info("agent: run finished", "iterations", iterations, "reason", reason, "entries", mem.Len())
	return mem, nil
}

func (a *Agent) generate(ctx context.Context, p *genx.Prompt, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	raw, err := a.gen.Generate(ctx, p)
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("model timed out after %s: %w", timeout, err)
	}
	return "", err
}

// record appends res as an environment entry.
func (a *Agent) record(mem *memory.Memory, res environment.Result) {
	e, err := memory.EnvironmentJSON(res)
	if err != nil {
		a.logger.Warn("agent: result not serializable", "error", err)
		e, _ = memory.EnvironmentJSON(environment.Failure(err, ""))
	}
	mem.Add(e)
}
