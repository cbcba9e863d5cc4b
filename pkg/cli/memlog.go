package cli

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/finsense/finsense/pkg/memory"
)

// Theme defines the color scheme of the memory log.
type Theme struct {
	Primary lipgloss.Color // user input and labels
	Accent  lipgloss.Color // model replies
	Error   lipgloss.Color // failed tool results
	Dim     lipgloss.Color // system text and timestamps
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Accent:  lipgloss.Color("#58a6ff"),
	Error:   lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	User        lipgloss.Style
	Assistant   lipgloss.Style
	Environment lipgloss.Style
	Failure     lipgloss.Style
	System      lipgloss.Style
	Label       lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		User:        lipgloss.NewStyle().Foreground(t.Primary),
		Assistant:   lipgloss.NewStyle().Foreground(t.Accent),
		Environment: lipgloss.NewStyle(),
		Failure:     lipgloss.NewStyle().Foreground(t.Error),
		System:      lipgloss.NewStyle().Foreground(t.Dim),
		Label:       lipgloss.NewStyle().Bold(true).Width(13),
	}
}

// envelope mirrors the fields of an environment result used for display.
type envelope struct {
	ToolExecuted bool            `json:"tool_executed"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
}

// RenderMemory renders entries one per line as "label  content". Long
// content is cut to width display cells; width <= 0 disables cutting.
// Environment results show their result value or their error.
func RenderMemory(entries []memory.Entry, s Styles, width int) string {
	var b strings.Builder
	for _, e := range entries {
		label, text, style := s.entry(e)
		if width > 0 {
			text = truncate(text, max(1, width-lipgloss.Width(label)-1))
		}
		b.WriteString(s.Label.Render(label))
		b.WriteString(" ")
		b.WriteString(style.Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

func (s Styles) entry(e memory.Entry) (label, text string, style lipgloss.Style) {
	text = e.Content.String()
	switch e.Role {
	case memory.RoleUser:
		return "you", text, s.User
	case memory.RoleAssistant:
		return "assistant", text, s.Assistant
	case memory.RoleSystem:
		return "system", text, s.System
	}
	var env envelope
	if j, ok := e.Content.(memory.JSON); ok && j.Decode(&env) == nil {
		if !env.ToolExecuted {
			return "✗ result", env.Error, s.Failure
		}
		if len(env.Result) > 0 {
			text = string(env.Result)
			var str string
			if json.Unmarshal(env.Result, &str) == nil {
				text = str
			}
		}
	}
	return "✓ result", text, s.Environment
}

// truncate cuts s to width display cells, ending with an ellipsis when cut.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	w := 0
	for i, r := range runes {
		rw := lipgloss.Width(string(r))
		if w+rw > width-1 {
			return string(runes[:i]) + "…"
		}
		w += rw
	}
	return s
}
