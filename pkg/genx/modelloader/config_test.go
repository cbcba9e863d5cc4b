package modelloader

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/finsense/finsense/pkg/genx"
	"github.com/finsense/finsense/pkg/genx/generators"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_API_KEY", "test-key-123")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"plain value", "plain-api-key", "plain-api-key"},
		{"env var with $", "$TEST_API_KEY", "test-key-123"},
		{"env var with ${}", "${TEST_API_KEY}", "test-key-123"},
		{"unset env var", "$UNSET_VAR_FOR_TEST", ""},
		{"mixed content", "prefix-$TEST_API_KEY-suffix", "prefix-$TEST_API_KEY-suffix"}, // Only expands if starts with $
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.input); got != tt.expected {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "models.yaml", `
schema: openai/chat/v1
type: generator
api_key: test-key
base_url: https://api.example.com/v1
models:
  - name: local/qwen
    model: qwen2.5
    use_system_role: true
    params:
      max_tokens: 512
      temperature: 0.2
`)
	cfg, err := parseConfig(path)
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.Schema != "openai/chat/v1" || cfg.Type != "generator" {
		t.Errorf("schema/type = %q/%q", cfg.Schema, cfg.Type)
	}
	if len(cfg.Models) != 1 {
		t.Fatalf("len(Models) = %d, want 1", len(cfg.Models))
	}
	m := cfg.Models[0]
	if !m.UseSystemRole || m.Params == nil || m.Params.MaxTokens != 512 {
		t.Errorf("model entry = %+v", m)
	}
}

func TestParseConfig_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.txt", "some content")
	if _, err := parseConfig(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestRegister_Errors(t *testing.T) {
	l := &Loader{Mux: generators.NewMux()}

	tests := []struct {
		name string
		cfg  ConfigFile
	}{
		{"no schema or kind", ConfigFile{}},
		{"unknown type", ConfigFile{Schema: "openai/chat/v1", Type: "tts"}},
		{"invalid schema", ConfigFile{Schema: "invalid", Type: "generator"}},
		{"unknown provider", ConfigFile{Kind: "doubao", APIKey: "k"}},
		{"missing model", ConfigFile{Kind: "openai", APIKey: "k", Models: []Entry{{Name: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Register(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := l.Register(ConfigFile{Kind: "openai"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("missing api key: err = %v", err)
	}
}

func TestLoadDir_RegistersOpenAI(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openai.json", `{
		"kind": "openai",
		"api_key": "test-key",
		"models": [
			{"name": "openai/gpt-4o-mini", "model": "gpt-4o-mini"},
			{"name": "openai/gpt-4o", "model": "gpt-4o", "strict": true}
		]
	}`)
	mux := generators.NewMux()
	names, err := (&Loader{Mux: mux}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if !slices.Equal(mux.Names(), []string{"openai/gpt-4o", "openai/gpt-4o-mini"}) || len(names) != 2 {
		t.Fatalf("names = %v, mux = %v", names, mux.Names())
	}
	gen, err := mux.Get("openai/gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	og, ok := gen.(*genx.OpenAIGenerator)
	if !ok || og.Model != "gpt-4o" || !og.Strict {
		t.Errorf("generator = %#v", gen)
	}
}

func TestLoadDir_SkipsMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.json", `{
		"schema": "openai/chat/v1",
		"type": "generator",
		"api_key": "$NONEXISTENT_API_KEY_FOR_TEST",
		"models": [{"name": "test/model", "model": "gpt-4"}]
	}`)
	names, err := (&Loader{Mux: generators.NewMux()}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 names (skipped), got %d", len(names))
	}
}

func TestLoadDir_IgnoresNonConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "# README")
	writeFile(t, dir, "script.sh", "#!/bin/bash")

	names, err := (&Loader{Mux: generators.NewMux()}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 names, got %d", len(names))
	}
}
