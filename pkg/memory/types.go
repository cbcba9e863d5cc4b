// Package memory provides the ordered interaction log an agent reads when it
// builds each prompt.
//
// A [Memory] holds [Entry] values in the order they were added. Each entry
// carries a [Role] from a closed set and a [Content] payload, which is either
// plain [Text] or a serialized [JSON] document (tool results). Entries with
// an unknown role or nil content are dropped on [Memory.Add].
//
// Memory is scoped to one agent run or to a caller-managed session. It is not
// safe for concurrent mutation; concurrent agents must each own a Memory.
package memory

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleEnvironment Role = "environment"
	RoleSystem      Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleEnvironment, RoleSystem:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Content is the payload of an entry. It is implemented by [Text] and [JSON]
// only.
type Content interface {
	// String returns the payload as text, the way it is shown to a model.
	String() string

	isContent()
}

// Text is a plain string payload.
type Text string

func (t Text) String() string { return string(t) }

func (Text) isContent() {}

// JSON is a serialized structured payload.
type JSON json.RawMessage

func (j JSON) String() string { return string(j) }

// MarshalJSON returns j unchanged so an entry embeds the document rather than
// a base64 string.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// Decode unmarshals the payload into v.
func (j JSON) Decode(v any) error {
	return json.Unmarshal(j, v)
}

func (JSON) isContent() {}

// Entry is a single item in the log.
type Entry struct {
	Role    Role    `json:"type"`
	Content Content `json:"content"`
}

// Valid reports whether e has a known role and non-nil content.
func (e Entry) Valid() bool {
	if !e.Role.Valid() || e.Content == nil {
		return false
	}
	if j, ok := e.Content.(JSON); ok && j == nil {
		return false
	}
	return true
}

// UnmarshalJSON decodes a string content as [Text] and anything else as
// [JSON].
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Role = raw.Role
	e.Content = nil
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		e.Content = Text(s)
		return nil
	}
	e.Content = JSON(raw.Content)
	return nil
}

func (e Entry) String() string {
	if e.Content == nil {
		return fmt.Sprintf("%s: <nil>", e.Role)
	}
	return fmt.Sprintf("%s: %s", e.Role, e.Content.String())
}

// UserText returns a user entry holding s.
func UserText(s string) Entry {
	return Entry{Role: RoleUser, Content: Text(s)}
}

// AssistantText returns an assistant entry holding s.
func AssistantText(s string) Entry {
	return Entry{Role: RoleAssistant, Content: Text(s)}
}

// SystemText returns a system entry holding s.
func SystemText(s string) Entry {
	return Entry{Role: RoleSystem, Content: Text(s)}
}

// EnvironmentJSON returns an environment entry holding v serialized as JSON.
func EnvironmentJSON(v any) (Entry, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("memory: marshal environment content: %w", err)
	}
	return Entry{Role: RoleEnvironment, Content: JSON(b)}, nil
}
