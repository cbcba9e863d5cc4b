// Package environment executes agent actions behind a fault boundary.
//
// [Environment.Execute] never returns an error and never panics: whatever the
// action does, the outcome is a [Result] envelope that the agent records in
// memory and shows to the model.
package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/finsense/finsense/pkg/action"
)

// DefaultToolTimeout bounds a single action invocation.
const DefaultToolTimeout = 60 * time.Second

// ErrNoAction is reported when Execute is called without an action.
var ErrNoAction = errors.New("environment: no action")

// Environment runs actions and normalizes their outcomes.
type Environment struct {
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithToolTimeout sets the per-invocation timeout. Zero or negative disables
// it.
func WithToolTimeout(d time.Duration) Option {
	return func(e *Environment) { e.timeout = d }
}

// WithClock sets the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Environment) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// New creates an Environment.
func New(opts ...Option) *Environment {
	e := &Environment{
		timeout: DefaultToolTimeout,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type outcome struct {
	value any
	err   error
	stack string
}

// Execute invokes act with args and wraps the outcome. A tool that does not
// honor context cancellation keeps running in the background after a
// timeout; its late result is discarded.
func (e *Environment) Execute(ctx context.Context, act *action.Action, args map[string]any) Result {
	if act == nil {
		return Failure(ErrNoAction, "")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r), stack: string(debug.Stack())}
			}
		}()
		v, err := act.Execute(ctx, args)
		ch <- outcome{value: v, err: err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-ctx.Done():
		select {
		case o = <-ch:
		default:
			o = outcome{err: e.doneError(act.Name, ctx.Err())}
		}
	}

	if o.err != nil {
		e.logger.Warn("environment: action failed", "action", act.Name, "error", o.err)
		return Failure(o.err, o.stack)
	}
	e.logger.Debug("environment: action executed", "action", act.Name)
	return Success(o.value, e.now())
}

func (e *Environment) doneError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("environment: tool %s timed out after %s: %w", name, e.timeout, err)
	}
	return fmt.Errorf("environment: tool %s canceled: %w", name, err)
}
