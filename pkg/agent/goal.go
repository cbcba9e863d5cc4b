package agent

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Goal is a static objective shown to the model on every iteration.
type Goal struct {
	Priority    int    `json:"priority" yaml:"priority"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

func (g Goal) String() string {
	return g.Name + ": " + g.Description
}

// LoadGoals reads goals from a YAML (or JSON) file. The file holds either a
// list of goals or a mapping with a goals key. File order is kept.
func LoadGoals(path string) ([]Goal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: read goals: %w", err)
	}
	return ParseGoals(data)
}

// ParseGoals decodes goals in the format of [LoadGoals].
func ParseGoals(data []byte) ([]Goal, error) {
	var list []Goal
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Goals []Goal `yaml:"goals"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("agent: parse goals: %w", err)
	}
	return doc.Goals, nil
}
