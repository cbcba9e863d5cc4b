package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/finsense/finsense/pkg/statement"
)

// ProfileFile is the file name of a context's profile.
const ProfileFile = "profile.yaml"

// Profile is the per-context configuration. Relative paths are resolved
// against the context directory.
type Profile struct {
	// UserID keys the user's data in the ledger.
	UserID string `json:"user_id" yaml:"user_id"`

	// Model is the generator name, as registered from ModelsDir.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	ModelsDir string `json:"models_dir,omitempty" yaml:"models_dir,omitempty"` // default "models"
	DataDir   string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`     // default "data"

	MaxIterations int           `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	ModelTimeout  time.Duration `json:"model_timeout,omitempty" yaml:"model_timeout,omitempty"`
	ToolTimeout   time.Duration `json:"tool_timeout,omitempty" yaml:"tool_timeout,omitempty"`

	// Tags select the tools the agent may use. Empty means budgeting.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// GoalsFile replaces the built-in goals.
	GoalsFile string `json:"goals_file,omitempty" yaml:"goals_file,omitempty"`

	// Rules replace the built-in behavioral rules.
	Rules string `json:"rules,omitempty" yaml:"rules,omitempty"`

	Statements Statements `json:"statements,omitempty" yaml:"statements,omitempty"`
}

// Statements selects the statement archive: a local directory (default
// "statements") or an S3 bucket.
type Statements struct {
	Dir string              `json:"dir,omitempty" yaml:"dir,omitempty"`
	S3  *statement.S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// DefaultProfile returns the profile written for a new context.
func DefaultProfile(user string) *Profile {
	if user == "" {
		user = "default"
	}
	return &Profile{UserID: user}
}

// LoadProfile reads profile.yaml from contextDir and resolves its paths.
func LoadProfile(contextDir string) (*Profile, error) {
	path := filepath.Join(contextDir, ProfileFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profile not found in context (expected: %s)", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if p.UserID == "" {
		return nil, fmt.Errorf("%s: user_id is required", path)
	}
	p.resolve(contextDir)
	return &p, nil
}

// SaveProfile writes p to contextDir/profile.yaml.
func SaveProfile(contextDir string, p *Profile) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	path := filepath.Join(contextDir, ProfileFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (p *Profile) resolve(dir string) {
	abs := func(path, def string) string {
		if path == "" {
			path = def
		}
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(dir, path)
	}
	p.ModelsDir = abs(p.ModelsDir, "models")
	p.DataDir = abs(p.DataDir, "data")
	p.GoalsFile = abs(p.GoalsFile, "")
	if p.Statements.S3 == nil {
		p.Statements.Dir = abs(p.Statements.Dir, "statements")
	}
}
