package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/finsense/finsense/cmd/finsense/internal/config"
	"github.com/finsense/finsense/pkg/action"
	"github.com/finsense/finsense/pkg/agent"
	"github.com/finsense/finsense/pkg/budget"
	"github.com/finsense/finsense/pkg/environment"
	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/genx/generators"
	"github.com/finsense/finsense/pkg/genx/modelloader"
	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/statement"
	"github.com/finsense/finsense/pkg/tool"
)

// testGenerator replaces the configured model in tests.
var testGenerator genx.Generator

// app is the runtime of one context: its profile, storage and tools.
type app struct {
	name    string
	profile *config.Profile
	store   *ledger.Ledger
	archive statement.Archive
	tools   *tool.Registry
	logger  *slog.Logger
}

// openApp opens the context selected by --context (or the current one).
// The caller must Close the app.
func openApp() (*app, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	name, dir, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	profile, err := config.LoadProfile(dir)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("context", name)

	store, err := ledger.NewBadger(ledger.BadgerOptions{
		Dir:    filepath.Join(profile.DataDir, "ledger"),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	archive, err := openArchive(profile.Statements)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		name:    name,
		profile: profile,
		store:   store,
		archive: archive,
		tools:   tool.NewRegistry(),
		logger:  logger,
	}
	kit := &budget.Toolkit{
		Store:   store,
		Archive: archive,
		UserID:  profile.UserID,
		Logger:  logger,
	}
	if err := kit.Register(a.tools); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func openArchive(s config.Statements) (statement.Archive, error) {
	if s.S3 != nil {
		if s.S3.Bucket == "" {
			return nil, errors.New("statements.s3.bucket is required")
		}
		return statement.NewS3(statement.NewS3Client(*s.S3), s.S3.Bucket, s.S3.Prefix), nil
	}
	return statement.NewDir(s.Dir)
}

func (a *app) Close() error {
	return a.store.Close()
}

// tags returns the tool tags the agent is scoped to.
func (a *app) tags() []string {
	if len(a.profile.Tags) == 0 {
		return []string{budget.Tag}
	}
	return a.profile.Tags
}

// generator loads the profile's models and returns the configured one.
func (a *app) generator() (genx.Generator, error) {
	if testGenerator != nil {
		return testGenerator, nil
	}
	if a.profile.Model == "" {
		return nil, fmt.Errorf("context %q has no model; set model in %s", a.name, config.ProfileFile)
	}
	loader := &modelloader.Loader{Mux: generators.NewMux(), Logger: a.logger, Verbose: verbose}
	if _, err := loader.LoadDir(a.profile.ModelsDir); err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return loader.Mux.Get(a.profile.Model)
}

// agent builds the budgeting agent of the context.
func (a *app) agent() (*agent.Agent, error) {
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	goals := budget.DefaultGoals()
	if a.profile.GoalsFile != "" {
		if goals, err = agent.LoadGoals(a.profile.GoalsFile); err != nil {
			return nil, err
		}
	}
	rules := a.profile.Rules
	if rules == "" {
		rules = budget.Rules
	}
	envOpts := []environment.Option{environment.WithLogger(a.logger)}
	if a.profile.ToolTimeout > 0 {
		envOpts = append(envOpts, environment.WithToolTimeout(a.profile.ToolTimeout))
	}
	return agent.New(agent.Config{
		Goals:       goals,
		Language:    agent.FunctionCallingLanguage{Rules: rules},
		Actions:     action.FromTools(a.tools, a.tags()...),
		Environment: environment.New(envOpts...),
		Generator:   gen,
		Logger:      a.logger,
	})
}

// runOptions returns the agent run options of the profile.
func (a *app) runOptions() []agent.RunOption {
	var opts []agent.RunOption
	if a.profile.MaxIterations > 0 {
		opts = append(opts, agent.WithMaxIterations(a.profile.MaxIterations))
	}
	if a.profile.ModelTimeout > 0 {
		opts = append(opts, agent.WithModelTimeout(a.profile.ModelTimeout))
	}
	return opts
}
