// Package modelloader reads model config files and registers the generators
// they describe.
//
// A config file is JSON or YAML:
//
//	schema: openai/chat/v1
//	type: generator
//	api_key: $OPENAI_API_KEY
//	base_url: https://api.openai.com/v1
//	models:
//	  - name: openai/gpt-4o-mini
//	    model: gpt-4o-mini
//
// The legacy form uses kind: openai|gemini instead of schema and type.
package modelloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/genx/generators"
)

// Verbose enables request body logging for the package-level loader.
var Verbose bool

// ErrMissingCredentials is returned when a config has no API key after
// environment expansion. LoadDir skips such files.
var ErrMissingCredentials = errors.New("modelloader: api_key is required")

type verboseTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *verboseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err == nil {
			body = pretty.Bytes()
		}
		t.logger.Debug("modelloader: request", "url", req.URL.String(), "body", string(body))
	}
	return t.base.RoundTrip(req)
}

type ConfigFile struct {
	Schema string `json:"schema,omitzero" yaml:"schema,omitzero"` // e.g. "openai/chat/v1"
	Type   string `json:"type,omitzero" yaml:"type,omitzero"`     // "generator"

	// Legacy format
	Kind string `json:"kind,omitzero" yaml:"kind,omitzero"` // "openai", "gemini"

	APIKey  string `json:"api_key,omitzero" yaml:"api_key,omitzero"` // Can be env var name like "$OPENAI_API_KEY"
	BaseURL string `json:"base_url,omitzero" yaml:"base_url,omitzero"`

	Models []Entry `json:"models,omitzero" yaml:"models,omitzero"`
}

type Entry struct {
	Name          string            `json:"name" yaml:"name"`
	Model         string            `json:"model" yaml:"model"`
	Params        *genx.ModelParams `json:"params,omitzero" yaml:"params,omitzero"`
	UseSystemRole bool              `json:"use_system_role,omitzero" yaml:"use_system_role,omitzero"`
	Strict        bool              `json:"strict,omitzero" yaml:"strict,omitzero"`
	ExtraFields   map[string]any    `json:"extra_fields,omitzero" yaml:"extra_fields,omitzero"`
	Desc          string            `json:"desc,omitzero" yaml:"desc,omitzero"`
}

// Loader registers generators from config files into Mux.
type Loader struct {
	Mux     *generators.Mux
	Logger  *slog.Logger
	Verbose bool
}

// LoadFromDir loads model configs from dir into generators.DefaultMux.
func LoadFromDir(dir string) ([]string, error) {
	l := &Loader{Mux: generators.DefaultMux, Verbose: Verbose}
	return l.LoadDir(dir)
}

// LoadDir loads model configs from dir recursively and registers generators.
// Returns the registered model names. Configs with missing credentials are
// skipped.
func (l *Loader) LoadDir(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			return nil
		}
		cfg, err := parseConfig(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		fileNames, err := l.Register(*cfg)
		if errors.Is(err, ErrMissingCredentials) {
			l.logger().Debug("modelloader: skipping config", "path", path, "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", path, err)
		}
		names = append(names, fileNames...)
		return nil
	})
	return names, err
}

func parseConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ConfigFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported extension: %s", ext)
	}
	return &cfg, nil
}

// Register creates a client for cfg and registers one generator per model
// entry.
func (l *Loader) Register(cfg ConfigFile) ([]string, error) {
	cfg.APIKey = expandEnv(cfg.APIKey)

	provider, err := providerOf(cfg)
	if err != nil {
		return nil, err
	}
	switch provider {
	case "openai":
		return l.registerOpenAI(cfg)
	case "gemini":
		return l.registerGemini(cfg)
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", provider)
	}
}

func providerOf(cfg ConfigFile) (string, error) {
	if cfg.Schema == "" {
		if cfg.Kind == "" {
			return "", errors.New("schema or kind is required")
		}
		return strings.ToLower(cfg.Kind), nil
	}
	if cfg.Type != "generator" {
		return "", fmt.Errorf("unknown type: %s", cfg.Type)
	}
	// {provider}/{subject}/{version}
	parts := strings.Split(cfg.Schema, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid schema: %s", cfg.Schema)
	}
	return parts[0], nil
}

// expandEnv expands environment variables in a string.
// Supports formats: $VAR, ${VAR}, and plain values.
// If the value starts with $ but the env var is not set, returns empty string.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

func (l *Loader) registerOpenAI(cfg ConfigFile) ([]string, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for openai", ErrMissingCredentials)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if l.Verbose {
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Transport: &verboseTransport{base: http.DefaultTransport, logger: l.logger()},
		}))
	}
	client := openai.NewClient(opts...)

	var names []string
	for _, m := range cfg.Models {
		if m.Name == "" || m.Model == "" {
			return nil, errors.New("model entry missing name or model")
		}
		if err := l.Mux.Handle(m.Name, &genx.OpenAIGenerator{
			Client:        &client,
			Model:         m.Model,
			Params:        m.Params,
			UseSystemRole: m.UseSystemRole,
			Strict:        m.Strict,
			ExtraFields:   m.ExtraFields,
			Logger:        l.Logger,
		}); err != nil {
			return nil, fmt.Errorf("register generator %q: %w", m.Name, err)
		}
		names = append(names, m.Name)
	}
	return names, nil
}

func (l *Loader) registerGemini(cfg ConfigFile) ([]string, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for gemini", ErrMissingCredentials)
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey}
	if l.Verbose {
		cc.HTTPClient = &http.Client{
			Transport: &verboseTransport{base: http.DefaultTransport, logger: l.logger()},
		}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, m := range cfg.Models {
		if m.Name == "" || m.Model == "" {
			return nil, errors.New("model entry missing name or model")
		}
		if err := l.Mux.Handle(m.Name, &genx.GeminiGenerator{
			Client: client,
			Model:  m.Model,
			Params: m.Params,
			Logger: l.Logger,
		}); err != nil {
			return nil, fmt.Errorf("register generator %q: %w", m.Name, err)
		}
		names = append(names, m.Name)
	}
	return names, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
